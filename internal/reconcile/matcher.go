// Package reconcile implements the matching engine and the commit/reverse
// operations that link ledger entries to bank transactions.
package reconcile

import (
	"strings"
	"unicode"

	"github.com/civic-contracts-ledger/internal/domain/account"
	"github.com/civic-contracts-ledger/internal/domain/entry"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// amountEpsilon is the tolerance for amount equality: a transaction is a
// candidate for an entry when their absolute amounts differ by less than
// one cent.
var amountEpsilon = decimal.New(1, -2)

// minNameTokenLen guards the payee-name disambiguation: first-name tokens of
// one or two characters are too ambiguous to filter on.
const minNameTokenLen = 3

// Pair is one row of a matching run: an entry and the transaction proposed
// for it, or nil when the engine declined to guess.
type Pair struct {
	Entry       *entry.Entry
	Transaction *account.Transaction
	Matched     bool
}

// Match proposes a 1:1 pairing between unreconciled entries and available
// transactions. Entries are processed in the caller-supplied order; a
// transaction claimed by one entry is removed from the pool for the rest of
// the run. Ambiguity is never resolved by guessing: entries with zero or
// several surviving candidates come back unmatched for manual resolution.
func Match(entries []*entry.Entry, transactions []*account.Transaction) []Pair {
	pairs := make([]Pair, 0, len(entries))
	claimed := make(map[int]bool, len(transactions))

	for _, e := range entries {
		var candidates []int
		for i, t := range transactions {
			if claimed[i] {
				continue
			}
			if t.Amount.Abs().Sub(e.Value).Abs().LessThan(amountEpsilon) {
				candidates = append(candidates, i)
			}
		}

		if len(candidates) > 1 {
			candidates = filterByPayeeName(e.PayeeName, transactions, candidates)
		}

		if len(candidates) == 1 {
			idx := candidates[0]
			claimed[idx] = true
			pairs = append(pairs, Pair{Entry: e, Transaction: transactions[idx], Matched: true})
			continue
		}

		pairs = append(pairs, Pair{Entry: e})
	}

	return pairs
}

// filterByPayeeName narrows an ambiguous candidate set using the entry's
// payee first name: a candidate qualifies when the normalized token appears
// in its normalized name+memo text. The original candidate set is returned
// untouched when the token is too short to discriminate.
func filterByPayeeName(payee string, transactions []*account.Transaction, candidates []int) []int {
	token := firstNameToken(payee)
	if len(token) < minNameTokenLen {
		return candidates
	}

	var surviving []int
	for _, i := range candidates {
		t := transactions[i]
		text := normalizeText(t.Name + " " + t.Memo)
		if strings.Contains(text, token) {
			surviving = append(surviving, i)
		}
	}
	if len(surviving) == 0 {
		return candidates
	}
	return surviving
}

// firstNameToken returns the normalized first whitespace-separated token of
// the payee name, or empty when the name is blank
func firstNameToken(payee string) string {
	fields := strings.Fields(payee)
	if len(fields) == 0 {
		return ""
	}
	return normalizeText(fields[0])
}

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText strips diacritics and upper-cases, so that "João" and
// "JOAO" compare equal
func normalizeText(s string) string {
	out, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(out)
}
