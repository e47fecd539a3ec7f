package ofx

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// maxCheckNumLen caps the check-number field. Some issuers emit values wider
// than the field's nominal width; those documents are otherwise valid, so the
// value is truncated instead of rejecting the whole file.
const maxCheckNumLen = 12

var checkNumPattern = regexp.MustCompile(`(<CHECKNUM>)([^<\r\n]+)`)

// Parse decodes a bank export document into a canonical Statement.
// The input uses the single-byte Windows-1252 encoding common to legacy
// bank exports. Returns *ParseError when the document lacks the required
// structural blocks.
func Parse(data []byte) (*Statement, error) {
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, &ParseError{Reason: "failed to decode document text", Err: err}
	}

	text := fixCheckNums(string(decoded))

	acctBlock, ok := tagBlock(text, "BANKACCTFROM")
	if !ok {
		return nil, &ParseError{Reason: "missing BANKACCTFROM block"}
	}
	balanceBlock, ok := tagBlock(text, "LEDGERBAL")
	if !ok {
		return nil, &ParseError{Reason: "missing LEDGERBAL block"}
	}
	tranList, ok := tagBlock(text, "BANKTRANLIST")
	if !ok {
		return nil, &ParseError{Reason: "missing BANKTRANLIST block"}
	}

	stmt := &Statement{
		BankID:    tagValue(acctBlock, "BANKID"),
		BranchID:  tagValue(acctBlock, "BRANCHID"),
		AccountID: tagValue(acctBlock, "ACCTID"),
	}
	if stmt.BankID == "" || stmt.AccountID == "" {
		return nil, &ParseError{Reason: "account identity is incomplete"}
	}

	// Institution name lives in the signon FI block
	if fi, ok := tagBlock(text, "FI"); ok {
		stmt.BankName = tagValue(fi, "ORG")
	}
	if stmt.BankName == "" {
		return nil, &ParseError{Reason: "missing institution name (FI/ORG)"}
	}

	stmt.Balance, err = parseAmount(tagValue(balanceBlock, "BALAMT"))
	if err != nil {
		return nil, &ParseError{Reason: "invalid ledger balance amount", Err: err}
	}
	stmt.BalanceDate, err = parseDate(tagValue(balanceBlock, "DTASOF"))
	if err != nil {
		return nil, &ParseError{Reason: "invalid ledger balance date", Err: err}
	}

	stmt.PeriodStart, err = parseDate(tagValue(tranList, "DTSTART"))
	if err != nil {
		return nil, &ParseError{Reason: "invalid statement period start", Err: err}
	}
	stmt.PeriodEnd, err = parseDate(tagValue(tranList, "DTEND"))
	if err != nil {
		return nil, &ParseError{Reason: "invalid statement period end", Err: err}
	}

	for _, block := range tagBlocks(tranList, "STMTTRN") {
		trn, err := parseTransaction(block)
		if err != nil {
			return nil, err
		}
		stmt.Transactions = append(stmt.Transactions, trn)
	}

	return stmt, nil
}

func parseTransaction(block string) (Transaction, error) {
	trn := Transaction{
		Type:     tagValue(block, "TRNTYPE"),
		ID:       tagValue(block, "FITID"),
		CheckNum: tagValue(block, "CHECKNUM"),
		Name:     tagValue(block, "NAME"),
		Memo:     tagValue(block, "MEMO"), // optional
	}
	if trn.Type == "" {
		return trn, &ParseError{Reason: "transaction record is missing its type"}
	}

	var err error
	trn.PostedAt, err = parseDate(tagValue(block, "DTPOSTED"))
	if err != nil {
		return trn, &ParseError{Reason: "invalid transaction posted date", Err: err}
	}
	trn.Amount, err = parseAmount(tagValue(block, "TRNAMT"))
	if err != nil {
		return trn, &ParseError{Reason: "invalid transaction amount", Err: err}
	}
	return trn, nil
}

// fixCheckNums truncates overlong check-number values before structural parsing
func fixCheckNums(text string) string {
	return checkNumPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := checkNumPattern.FindStringSubmatch(m)
		value := strings.TrimSpace(sub[2])
		if len(value) > maxCheckNumLen {
			value = value[:maxCheckNumLen]
		}
		return sub[1] + value
	})
}

// tagBlock returns the content between <TAG> and </TAG>
func tagBlock(s, tag string) (string, bool) {
	open := "<" + tag + ">"
	close := "</" + tag + ">"
	start := strings.Index(s, open)
	if start < 0 {
		return "", false
	}
	start += len(open)
	end := strings.Index(s[start:], close)
	if end < 0 {
		return "", false
	}
	return s[start : start+end], true
}

// tagBlocks returns every <TAG>...</TAG> occurrence in document order
func tagBlocks(s, tag string) []string {
	var blocks []string
	for {
		block, ok := tagBlock(s, tag)
		if !ok {
			return blocks
		}
		blocks = append(blocks, block)
		end := strings.Index(s, "</"+tag+">")
		s = s[end+len(tag)+3:]
	}
}

// tagValue returns the leaf element's text: everything after <TAG> up to the
// next tag or line break. Empty string when the tag is absent.
func tagValue(s, tag string) string {
	open := "<" + tag + ">"
	start := strings.Index(s, open)
	if start < 0 {
		return ""
	}
	start += len(open)
	rest := s[start:]
	if i := strings.IndexAny(rest, "<\r\n"); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

// parseDate reads the export's timestamp format YYYYMMDDHHMMSS, accepting
// date-only prefixes and ignoring trailing timezone qualifiers like [-3:BRT]
func parseDate(raw string) (time.Time, error) {
	if i := strings.Index(raw, "["); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)

	layouts := []string{"20060102150405", "200601021504", "20060102"}
	var lastErr error
	for _, layout := range layouts {
		if len(raw) != len(layout) {
			continue
		}
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &ParseError{Reason: "unrecognized date value " + raw}
	}
	return time.Time{}, lastErr
}

// parseAmount reads a signed decimal, accepting comma decimal separators
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	return decimal.NewFromString(raw)
}
