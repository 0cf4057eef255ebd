package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/visit"
)

// AccountSaver stores accounts. *account.Repository implements it.
type AccountSaver interface {
	Save(a *account.Account) (*account.Account, error)
}

// VisitInserter stores visits. *visit.Repository implements it.
type VisitInserter interface {
	Insert(v *visit.Visit) (*visit.Visit, error)
}

// Result reports what Apply wrote.
type Result struct {
	Accounts int         `json:"accounts"`
	Visits   int         `json:"visits"`
	Skipped  int         `json:"skipped"` // visits already stored in the same slot
	Failed   []Rejection `json:"failed"`
}

// Apply writes a batch, accounts first so visits can reference them.
// Accounts are upserted by ID and visits whose slot is already taken are
// skipped, so applying the same document twice changes nothing. A record
// the store refuses (for example a visit for an unknown account) is
// recorded in Result.Failed under its document index and the rest of the
// batch continues. Apply stops early only when ctx is done.
func Apply(ctx context.Context, b *Batch, accounts AccountSaver, visits VisitInserter, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := Result{Failed: []Rejection{}}

	fail := func(kind Kind, i int, ref string, err error) {
		res.Failed = append(res.Failed, Rejection{Kind: kind, Index: i, Ref: ref, Reason: err.Error()})
		logger.Warn("import record not stored", "kind", string(kind), "index", i, "ref", ref, "error", err)
	}

	for i := range b.Accounts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		a := b.Accounts[i]
		if _, err := accounts.Save(&a); err != nil {
			fail(KindAccount, sourceIndex(b.AccountIndex, i), a.ID, err)
			continue
		}
		res.Accounts++
	}

	for i := range b.Visits {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		v := b.Visits[i]
		if _, err := visits.Insert(&v); err != nil {
			if errors.Is(err, visit.ErrDuplicate) {
				res.Skipped++
				continue
			}
			fail(KindVisit, sourceIndex(b.VisitIndex, i), v.AccountID, err)
			continue
		}
		res.Visits++
	}

	logger.Info("import applied", "accounts", res.Accounts, "visits", res.Visits,
		"skipped", res.Skipped, "failed", len(res.Failed))
	return res, nil
}
