package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/civic-contracts-ledger/internal/api/middleware"
	"github.com/civic-contracts-ledger/internal/domain/account"
	"github.com/civic-contracts-ledger/internal/ingest"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const sampleExport = `OFXHEADER:100
DATA:OFXSGML
VERSION:102

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<FI>
<ORG>BANCO DO BRASIL
<FID>001
</FI>
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<STMTRS>
<CURDEF>BRL
<BANKACCTFROM>
<BANKID>001
<BRANCHID>1234-5
<ACCTID>67890-1
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240301000000[-3:BRT]
<DTEND>20240331235959[-3:BRT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240305120000[-3:BRT]
<TRNAMT>-150,00
<FITID>2024030501
<NAME>MARIA SILVA EVENTOS
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>3250,75
<DTASOF>20240331235959[-3:BRT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, orgID uuid.UUID, input ingest.Input) (*ingest.Result, error) {
	args := m.Called(ctx, orgID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.Result), args.Error(1)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByKey(ctx context.Context, orgID uuid.UUID, key account.Key) (*account.Account, error) {
	args := m.Called(ctx, orgID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) WithTx(tx pgx.Tx) account.Repository {
	m.Called(tx)
	return m
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateBatch(ctx context.Context, transactions []*account.Transaction) error {
	args := m.Called(ctx, transactions)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*account.Transaction, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByAccountID(ctx context.Context, orgID, accountID uuid.UUID, limit, offset int) ([]*account.Transaction, error) {
	args := m.Called(ctx, orgID, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByAccountID(ctx context.Context, orgID, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, orgID, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) ListAvailable(ctx context.Context, orgID uuid.UUID, accountIDs []uuid.UUID, from, to time.Time) ([]*account.Transaction, error) {
	args := m.Called(ctx, orgID, accountIDs, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) LockForLink(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]*account.Transaction, error) {
	args := m.Called(ctx, orgID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) WithTx(tx pgx.Tx) account.TransactionRepository {
	m.Called(tx)
	return m
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	r.Use(middleware.OrganizationID())
	return r
}

func multipartBody(t *testing.T, contractID, accountType, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("contract_id", contractID))
	require.NoError(t, writer.WriteField("account_type", accountType))
	part, err := writer.CreateFormFile("file", "extrato.ofx")
	require.NoError(t, err)
	_, err = part.Write([]byte(fileContent))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestAccountHandler_Import(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	orgID := uuid.New()
	contractID := uuid.New()

	newHandler := func(maxBytes int64) (*AccountHandler, *MockIngestService) {
		mockIngest := new(MockIngestService)
		return NewAccountHandler(logger, mockIngest, new(MockAccountRepository), new(MockTransactionRepository), maxBytes), mockIngest
	}

	doRequest := func(h *AccountHandler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.POST("/accounts/import", h.Import)

		req, _ := http.NewRequest(http.MethodPost, "/accounts/import", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(middleware.OrganizationIDHeader, orgID.String())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("Success", func(t *testing.T) {
		handler, mockIngest := newHandler(5 << 20)

		acc := &account.Account{
			ID:             uuid.New(),
			OrganizationID: orgID,
			BankName:       "BANCO DO BRASIL",
			BankID:         "001",
			Branch:         "1234-5",
			Number:         "67890-1",
			Type:           account.TypeChecking,
			Balance:        decimal.RequireFromString("3250.75"),
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}
		mockIngest.On("Ingest", mock.Anything, orgID, mock.MatchedBy(func(input ingest.Input) bool {
			return input.ContractID == contractID &&
				input.AccountType == account.TypeChecking &&
				input.Statement != nil &&
				input.Statement.AccountID == "67890-1" &&
				len(input.Statement.Transactions) == 1
		})).Return(&ingest.Result{Account: acc, TransactionCount: 1}, nil)

		body, contentType := multipartBody(t, contractID.String(), "CHECKING", sampleExport)
		rr := doRequest(handler, body, contentType)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var response Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		data, err := json.Marshal(response.Data)
		require.NoError(t, err)
		var result ImportResultResponse
		require.NoError(t, json.Unmarshal(data, &result))
		assert.Equal(t, acc.ID.String(), result.Account.ID)
		assert.Equal(t, 1, result.TransactionCount)

		mockIngest.AssertExpectations(t)
	})

	t.Run("FileTooLarge", func(t *testing.T) {
		handler, mockIngest := newHandler(64)

		body, contentType := multipartBody(t, contractID.String(), "CHECKING", sampleExport)
		rr := doRequest(handler, body, contentType)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.Contains(t, rr.Body.String(), "FILE_TOO_LARGE")
		mockIngest.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnparseableFile", func(t *testing.T) {
		handler, mockIngest := newHandler(5 << 20)

		body, contentType := multipartBody(t, contractID.String(), "CHECKING", "this is not a bank export")
		rr := doRequest(handler, body, contentType)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "UNPARSEABLE_STATEMENT")
		mockIngest.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DuplicateAccount", func(t *testing.T) {
		handler, mockIngest := newHandler(5 << 20)

		mockIngest.On("Ingest", mock.Anything, orgID, mock.Anything).
			Return(nil, account.ErrDuplicateAccount{Key: account.Key{BankName: "BANCO DO BRASIL", Number: "67890-1", Type: account.TypeChecking}})

		body, contentType := multipartBody(t, contractID.String(), "CHECKING", sampleExport)
		rr := doRequest(handler, body, contentType)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "DUPLICATE_ACCOUNT")
	})

	t.Run("ContractNotFound", func(t *testing.T) {
		handler, mockIngest := newHandler(5 << 20)

		mockIngest.On("Ingest", mock.Anything, orgID, mock.Anything).
			Return(nil, account.ErrContractNotFound{ContractID: contractID})

		body, contentType := multipartBody(t, contractID.String(), "CHECKING", sampleExport)
		rr := doRequest(handler, body, contentType)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidAccountType", func(t *testing.T) {
		handler, mockIngest := newHandler(5 << 20)

		body, contentType := multipartBody(t, contractID.String(), "SAVINGS", sampleExport)
		rr := doRequest(handler, body, contentType)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockIngest.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("IngestFailure", func(t *testing.T) {
		handler, mockIngest := newHandler(5 << 20)

		mockIngest.On("Ingest", mock.Anything, orgID, mock.Anything).
			Return(nil, errors.New("database unavailable"))

		body, contentType := multipartBody(t, contractID.String(), "CHECKING", sampleExport)
		rr := doRequest(handler, body, contentType)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestAccountHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	orgID := uuid.New()

	doRequest := func(h *AccountHandler, id string) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.GET("/accounts/:id", h.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+id, nil)
		req.Header.Set(middleware.OrganizationIDHeader, orgID.String())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("Success", func(t *testing.T) {
		mockAccounts := new(MockAccountRepository)
		handler := NewAccountHandler(logger, new(MockIngestService), mockAccounts, new(MockTransactionRepository), 5<<20)

		accountID := uuid.New()
		acc := &account.Account{
			ID:             accountID,
			OrganizationID: orgID,
			BankName:       "BANCO DO BRASIL",
			Number:         "67890-1",
			Type:           account.TypeChecking,
			Balance:        decimal.RequireFromString("100.00"),
		}
		mockAccounts.On("GetByID", mock.Anything, orgID, accountID).Return(acc, nil)

		rr := doRequest(handler, accountID.String())

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), accountID.String())
		mockAccounts.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockAccounts := new(MockAccountRepository)
		handler := NewAccountHandler(logger, new(MockIngestService), mockAccounts, new(MockTransactionRepository), 5<<20)

		accountID := uuid.New()
		mockAccounts.On("GetByID", mock.Anything, orgID, accountID).
			Return(nil, account.ErrAccountNotFound{AccountID: accountID})

		rr := doRequest(handler, accountID.String())

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		handler := NewAccountHandler(logger, new(MockIngestService), new(MockAccountRepository), new(MockTransactionRepository), 5<<20)

		rr := doRequest(handler, "not-a-uuid")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAccountHandler_ListTransactions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	orgID := uuid.New()
	accountID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockTransactions := new(MockTransactionRepository)
		handler := NewAccountHandler(logger, new(MockIngestService), new(MockAccountRepository), mockTransactions, 5<<20)

		externalID := "2024030501"
		transactions := []*account.Transaction{
			{
				ID:         uuid.New(),
				AccountID:  accountID,
				Kind:       account.KindDebit,
				PostedAt:   time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
				Amount:     decimal.RequireFromString("-150.00"),
				ExternalID: &externalID,
				Name:       "MARIA SILVA EVENTOS",
			},
		}
		mockTransactions.On("CountByAccountID", mock.Anything, orgID, accountID).Return(int64(15), nil)
		mockTransactions.On("ListByAccountID", mock.Anything, orgID, accountID, 10, 10).Return(transactions, nil)

		router := setupTestRouter()
		router.GET("/accounts/:id/transactions", handler.ListTransactions)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+accountID.String()+"/transactions?page=2&per_page=10", nil)
		req.Header.Set(middleware.OrganizationIDHeader, orgID.String())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var response Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		require.NotNil(t, response.Meta)
		assert.Equal(t, 2, response.Meta.Page)
		assert.Equal(t, 15, response.Meta.TotalItems)
		assert.Equal(t, 2, response.Meta.TotalPages)

		mockTransactions.AssertExpectations(t)
	})

	t.Run("CountFailure", func(t *testing.T) {
		mockTransactions := new(MockTransactionRepository)
		handler := NewAccountHandler(logger, new(MockIngestService), new(MockAccountRepository), mockTransactions, 5<<20)

		mockTransactions.On("CountByAccountID", mock.Anything, orgID, accountID).
			Return(int64(0), errors.New("database unavailable"))

		router := setupTestRouter()
		router.GET("/accounts/:id/transactions", handler.ListTransactions)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+accountID.String()+"/transactions", nil)
		req.Header.Set(middleware.OrganizationIDHeader, orgID.String())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
