package ofx

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[-3:BRT]
<LANGUAGE>POR
<FI>
<ORG>BANCO DO BRASIL
<FID>001
</FI>
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
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
<CHECKNUM>000000850019
<NAME>MARIA SILVA EVENTOS
<MEMO>PAGAMENTO FORNECEDOR
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240310090000[-3:BRT]
<TRNAMT>2500.00
<FITID>2024031002
<NAME>REPASSE MUNICIPAL
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

func TestParse_FullDocument(t *testing.T) {
	stmt, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, "BANCO DO BRASIL", stmt.BankName)
	assert.Equal(t, "001", stmt.BankID)
	assert.Equal(t, "1234-5", stmt.BranchID)
	assert.Equal(t, "67890-1", stmt.AccountID)
	assert.True(t, stmt.Balance.Equal(decimal.NewFromFloat(3250.75)), "got %s", stmt.Balance)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), stmt.BalanceDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), stmt.PeriodStart)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), stmt.PeriodEnd)

	require.Len(t, stmt.Transactions, 2)

	debit := stmt.Transactions[0]
	assert.Equal(t, "DEBIT", debit.Type)
	assert.True(t, debit.Amount.Equal(decimal.NewFromFloat(-150.00)))
	assert.Equal(t, "2024030501", debit.ID)
	assert.Equal(t, "000000850019", debit.CheckNum)
	assert.Equal(t, "MARIA SILVA EVENTOS", debit.Name)
	assert.Equal(t, "PAGAMENTO FORNECEDOR", debit.Memo)
	assert.Equal(t, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), debit.PostedAt)

	credit := stmt.Transactions[1]
	assert.Equal(t, "CREDIT", credit.Type)
	assert.True(t, credit.Amount.Equal(decimal.NewFromFloat(2500.00)))
	assert.Empty(t, credit.Memo, "memo is optional")
}

func TestParse_Idempotent(t *testing.T) {
	first, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)
	second, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParse_TruncatesOverlongCheckNum(t *testing.T) {
	doc := strings.Replace(sampleDocument, "<CHECKNUM>000000850019", "<CHECKNUM>00000085001998765", 1)

	stmt, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "000000850019", stmt.Transactions[0].CheckNum)
	assert.Len(t, stmt.Transactions[0].CheckNum, maxCheckNumLen)
}

func TestParse_MissingStructuralBlocks(t *testing.T) {
	testCases := []struct {
		name   string
		remove string
	}{
		{"NoAccountBlock", "BANKACCTFROM"},
		{"NoLedgerBalance", "LEDGERBAL"},
		{"NoTransactionList", "BANKTRANLIST"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := strings.Replace(sampleDocument, "<"+tc.remove+">", "<GONE>", 1)
			doc = strings.Replace(doc, "</"+tc.remove+">", "</GONE>", 1)

			_, err := Parse([]byte(doc))
			require.Error(t, err)
			var parseErr *ParseError
			assert.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestParse_MissingInstitutionName(t *testing.T) {
	doc := strings.Replace(sampleDocument, "<ORG>BANCO DO BRASIL\n", "", 1)
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "institution")
}

func TestParse_InvalidAmount(t *testing.T) {
	doc := strings.Replace(sampleDocument, "<TRNAMT>-150,00", "<TRNAMT>abc", 1)
	_, err := Parse([]byte(doc))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParse_EmptyTransactionList(t *testing.T) {
	start := strings.Index(sampleDocument, "<STMTTRN>")
	end := strings.LastIndex(sampleDocument, "</STMTTRN>") + len("</STMTTRN>")
	doc := sampleDocument[:start] + sampleDocument[end:]

	stmt, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, stmt.Transactions)
}

func TestParse_DecodesLegacyEncoding(t *testing.T) {
	// 0xC7 is Ç in Windows-1252
	doc := strings.Replace(sampleDocument, "REPASSE MUNICIPAL", "REPASSE MUNI\xc7AL", 1)

	stmt, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "REPASSE MUNIÇAL", stmt.Transactions[1].Name)
}

func TestFixCheckNums(t *testing.T) {
	in := "<CHECKNUM>1234567890123456\n<NAME>X"
	out := fixCheckNums(in)
	assert.Contains(t, out, "<CHECKNUM>123456789012\n")

	// Values within the limit pass through untouched
	in = "<CHECKNUM>850019\n"
	assert.Equal(t, in, fixCheckNums(in))
}
