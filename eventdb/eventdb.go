// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb journals staking ledger activity into sqlite so the
// history API can answer range queries without replaying state.
package eventdb

import (
	"database/sql"
	"math/big"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/stakemesh/stakemesh/mesh"
)

// Kind tags what a journal entry records.
type Kind string

const (
	FlowCreated Kind = "flow-created"
	Funded      Kind = "funded"
	Distributed Kind = "distributed"
	Withdrawn   Kind = "withdrawn"
	Delegated   Kind = "delegated"
	Unbonded    Kind = "unbonded"
	Rebonded    Kind = "rebonded"
)

// OrderType is the sort direction of a filter.
type OrderType string

const (
	ASC  OrderType = "ASC"
	DESC OrderType = "DESC"
)

// Event is one journal entry. Amount is kept as a decimal string so
// arbitrarily large values survive the round trip.
type Event struct {
	Sequence uint64
	Time     uint64
	Kind     Kind
	Asset    string
	Staker   *mesh.Address
	Tier     uint64
	Amount   *big.Int
	Receiver *mesh.Address
}

// Range bounds a filter by entry time, inclusive on both ends.
type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Options paginates a filter.
type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// Filter selects journal entries.
type Filter struct {
	Kind    Kind          `json:"kind"`
	Asset   string        `json:"asset"`
	Staker  *mesh.Address `json:"staker"`
	Order   OrderType     `json:"order"` // default asc
	Range   *Range        `json:"range"`
	Options *Options      `json:"options"`
}

const eventTableSchema = `
create table if not exists event (
	seq integer primary key autoincrement,
	time decimal(32,0),
	kind text,
	asset text,
	staker blob(20),
	tier decimal(32,0),
	amount text,
	receiver blob(20)
);

CREATE INDEX if not exists timeIndex on event(time);
CREATE INDEX if not exists kindIndex on event(kind);
CREATE INDEX if not exists assetIndex on event(asset);
CREATE INDEX if not exists stakerIndex on event(staker);
`

// EventDB manages the activity journal.
type EventDB struct {
	path          string
	db            *sql.DB
	sqliteVersion string
}

// New opens the journal at path, creating the schema if needed.
func New(path string) (*EventDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, err
	}
	s, _, _ := sqlite3.Version()
	return &EventDB{
		path:          path,
		db:            db,
		sqliteVersion: s,
	}, nil
}

// NewMem creates an in-memory journal.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Insert appends entries to the journal in one transaction.
func (db *EventDB) Insert(events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	for _, event := range events {
		if _, err = tx.Exec("INSERT INTO event(time, kind, asset, staker, tier, amount, receiver) VALUES ( ?, ?, ?, ?, ?, ?, ? );",
			event.Time,
			string(event.Kind),
			event.Asset,
			addressValue(event.Staker),
			event.Tier,
			amountValue(event.Amount),
			addressValue(event.Receiver)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Filter returns journal entries matching the filter.
func (db *EventDB) Filter(filter *Filter) ([]*Event, error) {
	if filter == nil {
		return db.query("SELECT * FROM event ORDER BY seq ASC")
	}
	var args []interface{}
	stmt := "SELECT * FROM event WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND time >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND time <= ? "
		}
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		stmt += " AND kind = ? "
	}
	if filter.Asset != "" {
		args = append(args, filter.Asset)
		stmt += " AND asset = ? "
	}
	if filter.Staker != nil {
		args = append(args, filter.Staker.Bytes())
		stmt += " AND staker = ? "
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}

	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(stmt, args...)
}

func (db *EventDB) query(stmt string, args ...interface{}) ([]*Event, error) {
	rows, err := db.db.Query(stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			seq      uint64
			time     uint64
			kind     string
			asset    string
			staker   []byte
			tier     uint64
			amount   string
			receiver []byte
		)
		if err := rows.Scan(
			&seq,
			&time,
			&kind,
			&asset,
			&staker,
			&tier,
			&amount,
			&receiver,
		); err != nil {
			return nil, err
		}
		event := &Event{
			Sequence: seq,
			Time:     time,
			Kind:     Kind(kind),
			Asset:    asset,
			Tier:     tier,
		}
		if len(staker) > 0 {
			a := mesh.BytesToAddress(staker)
			event.Staker = &a
		}
		if len(receiver) > 0 {
			a := mesh.BytesToAddress(receiver)
			event.Receiver = &a
		}
		if amount != "" {
			value, ok := new(big.Int).SetString(amount, 10)
			if !ok {
				return nil, errors.Errorf("malformed amount %q", amount)
			}
			event.Amount = value
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Path returns the journal's location.
func (db *EventDB) Path() string {
	return db.path
}

// Close closes the underlying database.
func (db *EventDB) Close() {
	db.db.Close()
}

func addressValue(a *mesh.Address) []byte {
	if a == nil {
		return nil
	}
	return a.Bytes()
}

func amountValue(a *big.Int) string {
	if a == nil {
		return ""
	}
	return a.String()
}
