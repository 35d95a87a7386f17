// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking exposes the staking ledger over HTTP. Mutations name the
// caller in the request body; the transport in front of the daemon is
// expected to have authenticated it.
package staking

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakemesh/stakemesh/api/utils"
	"github.com/stakemesh/stakemesh/eventdb"
	"github.com/stakemesh/stakemesh/log"
	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/staking"
	"github.com/stakemesh/stakemesh/staking/types"
)

var logger = log.WithContext("pkg", "api")

type Staking struct {
	staker  *staking.Staker
	journal *eventdb.EventDB
	now     func() uint64
	persist func() error
}

// New creates the staking resource. The journal and persist hook may be nil;
// now may be nil to use wall clock seconds.
func New(staker *staking.Staker, journal *eventdb.EventDB, now func() uint64, persist func() error) *Staking {
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return &Staking{
		staker:  staker,
		journal: journal,
		now:     now,
		persist: persist,
	}
}

// finish persists state and journals entries after a successful mutation.
func (s *Staking) finish(entries ...*eventdb.Event) error {
	if s.persist != nil {
		if err := s.persist(); err != nil {
			return err
		}
	}
	if s.journal != nil {
		if err := s.journal.Insert(entries); err != nil {
			logger.Warn("journal insert failed", "err", err)
		}
	}
	return nil
}

// mapError translates ledger errors into http status codes.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, staking.ErrUnauthorized):
		return utils.Forbidden(err)
	case errors.Is(err, staking.ErrNoFlow):
		return utils.HTTPError(err, http.StatusNotFound)
	case errors.Is(err, staking.ErrBondedToken),
		errors.Is(err, staking.ErrUnknownTier),
		errors.Is(err, staking.ErrMalformedCurve),
		errors.Is(err, staking.ErrTooManyFlows),
		errors.Is(err, staking.ErrFlowExists),
		errors.Is(err, staking.ErrInsufficientBond):
		return utils.BadRequest(err)
	default:
		return err
	}
}

func parseAddress(raw string) (mesh.Address, error) {
	addr, err := mesh.ParseAddress(raw)
	if err != nil {
		return mesh.Address{}, utils.BadRequest(errors.WithMessage(err, "address"))
	}
	return addr, nil
}

func (s *Staking) handleGetFlows(w http.ResponseWriter, _ *http.Request) error {
	assets, err := s.staker.Flows()
	if err != nil {
		return err
	}
	summaries := make([]*FlowSummary, 0, len(assets))
	for _, asset := range assets {
		summary, err := s.flowSummary(asset)
		if err != nil {
			return mapError(err)
		}
		summaries = append(summaries, summary)
	}
	return utils.WriteJSON(w, summaries)
}

func (s *Staking) handleGetFlow(w http.ResponseWriter, req *http.Request) error {
	summary, err := s.flowSummary(types.Asset(mux.Vars(req)["asset"]))
	if err != nil {
		return mapError(err)
	}
	return utils.WriteJSON(w, summary)
}

func (s *Staking) flowSummary(asset types.Asset) (*FlowSummary, error) {
	flow, err := s.staker.Flow(asset)
	if err != nil {
		return nil, err
	}
	distributed, undistributed, claimable, err := s.staker.FundsTotals(asset, s.now())
	if err != nil {
		return nil, err
	}
	tiers := make([]TierReward, len(flow.Tiers))
	for i, tr := range flow.Tiers {
		tiers[i] = TierReward{Tier: uint64(tr.Tier), Multiplier: tr.Multiplier}
	}
	return &FlowSummary{
		Asset:         string(asset),
		Manager:       flow.Manager,
		Tiers:         tiers,
		TotalPoints:   amount(flow.TotalPoints),
		Funded:        amount(flow.Funded),
		Distributed:   amount(distributed),
		Undistributed: amount(undistributed),
		Claimable:     amount(claimable),
		Withdrawn:     amount(flow.Withdrawn),
	}, nil
}

func (s *Staking) handleCreateFlow(w http.ResponseWriter, req *http.Request) error {
	var body CreateFlowRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := s.now()
	if err := s.staker.CreateFlow(body.Caller, body.Manager, types.Asset(body.Asset), tierRewards(body.Tiers), now); err != nil {
		return mapError(err)
	}
	if err := s.finish(&eventdb.Event{
		Time:  now,
		Kind:  eventdb.FlowCreated,
		Asset: body.Asset,
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"asset": body.Asset})
}

func (s *Staking) handleFund(w http.ResponseWriter, req *http.Request) error {
	asset := mux.Vars(req)["asset"]
	var body FundRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	curve, err := schedule(body.Schedule)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "schedule"))
	}
	now := s.now()
	if err := s.staker.Fund(body.Caller, types.Asset(asset), bigint(body.Amount), curve, now); err != nil {
		return mapError(err)
	}
	if err := s.finish(&eventdb.Event{
		Time:   now,
		Kind:   eventdb.Funded,
		Asset:  asset,
		Amount: bigint(body.Amount),
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"funded": body.Amount})
}

func (s *Staking) handleDistribute(w http.ResponseWriter, req *http.Request) error {
	asset := mux.Vars(req)["asset"]
	now := s.now()
	released, err := s.staker.DistributeFunds(types.Asset(asset), now)
	if err != nil {
		return mapError(err)
	}
	if err := s.finish(&eventdb.Event{
		Time:   now,
		Kind:   eventdb.Distributed,
		Asset:  asset,
		Amount: released,
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"released": amount(released)})
}

func (s *Staking) handleDelegate(w http.ResponseWriter, req *http.Request) error {
	staker, err := parseAddress(mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	var body BondRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := s.now()
	if err := s.staker.Delegate(staker, types.Tier(body.Tier), bigint(body.Amount), now); err != nil {
		return mapError(err)
	}
	if err := s.finish(&eventdb.Event{
		Time:   now,
		Kind:   eventdb.Delegated,
		Staker: &staker,
		Tier:   body.Tier,
		Amount: bigint(body.Amount),
	}); err != nil {
		return err
	}
	return s.writeStakerSummary(w, staker)
}

func (s *Staking) handleUnbond(w http.ResponseWriter, req *http.Request) error {
	staker, err := parseAddress(mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	var body BondRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := s.now()
	if err := s.staker.Unbond(staker, types.Tier(body.Tier), bigint(body.Amount), now); err != nil {
		return mapError(err)
	}
	if err := s.finish(&eventdb.Event{
		Time:   now,
		Kind:   eventdb.Unbonded,
		Staker: &staker,
		Tier:   body.Tier,
		Amount: bigint(body.Amount),
	}); err != nil {
		return err
	}
	return s.writeStakerSummary(w, staker)
}

func (s *Staking) handleRebond(w http.ResponseWriter, req *http.Request) error {
	staker, err := parseAddress(mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	var body RebondRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := s.now()
	if err := s.staker.Rebond(staker, bigint(body.Amount), types.Tier(body.From), types.Tier(body.To), now); err != nil {
		return mapError(err)
	}
	if err := s.finish(&eventdb.Event{
		Time:   now,
		Kind:   eventdb.Rebonded,
		Staker: &staker,
		Tier:   body.To,
		Amount: bigint(body.Amount),
	}); err != nil {
		return err
	}
	return s.writeStakerSummary(w, staker)
}

func (s *Staking) handleMassDelegate(w http.ResponseWriter, req *http.Request) error {
	var body MassDelegateRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	allocations := make([]staking.Allocation, len(body.Allocations))
	for i, a := range body.Allocations {
		allocations[i] = staking.Allocation{Staker: a.Staker, Amount: bigint(a.Amount)}
	}
	now := s.now()
	if err := s.staker.MassDelegate(body.Funder, bigint(body.Total), types.Tier(body.Tier), allocations, now); err != nil {
		return mapError(err)
	}
	entries := make([]*eventdb.Event, len(body.Allocations))
	for i := range body.Allocations {
		staker := body.Allocations[i].Staker
		entries[i] = &eventdb.Event{
			Time:   now,
			Kind:   eventdb.Delegated,
			Staker: &staker,
			Tier:   body.Tier,
			Amount: bigint(body.Allocations[i].Amount),
		}
	}
	if err := s.finish(entries...); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"delegated": body.Total})
}

func (s *Staking) handleWithdraw(w http.ResponseWriter, req *http.Request) error {
	var body WithdrawRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := s.now()
	payments, err := s.staker.Withdraw(body.Caller, body.Owner, body.Receiver, now)
	if err != nil {
		return mapError(err)
	}
	owner := body.Owner
	if owner.IsZero() {
		owner = body.Caller
	}
	entries := make([]*eventdb.Event, len(payments))
	out := make([]Payment, len(payments))
	for i, p := range payments {
		receiver := p.Receiver
		entries[i] = &eventdb.Event{
			Time:     now,
			Kind:     eventdb.Withdrawn,
			Asset:    string(p.Asset),
			Staker:   &owner,
			Amount:   p.Amount,
			Receiver: &receiver,
		}
		out[i] = Payment{Asset: string(p.Asset), Amount: amount(p.Amount), Receiver: p.Receiver}
	}
	if err := s.finish(entries...); err != nil {
		return err
	}
	return utils.WriteJSON(w, out)
}

func (s *Staking) handleDelegateWithdrawal(w http.ResponseWriter, req *http.Request) error {
	staker, err := parseAddress(mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	var body DelegateWithdrawalRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := s.staker.DelegateWithdrawal(staker, body.Receiver); err != nil {
		return mapError(err)
	}
	if err := s.finish(); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"receiver": body.Receiver})
}

func (s *Staking) handleGetStaker(w http.ResponseWriter, req *http.Request) error {
	staker, err := parseAddress(mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	return s.writeStakerSummary(w, staker)
}

func (s *Staking) writeStakerSummary(w http.ResponseWriter, staker mesh.Address) error {
	summary := &StakerSummary{Address: staker}
	for _, tier := range s.staker.Config().Tiers {
		bonded, err := s.staker.BondedAmount(staker, tier)
		if err != nil {
			return err
		}
		summary.Positions = append(summary.Positions, BondedPosition{Tier: uint64(tier), Bonded: amount(bonded)})
	}
	total, err := s.staker.StakerBonded(staker)
	if err != nil {
		return err
	}
	summary.Total = amount(total)
	receiver, err := s.staker.DelegatedWithdrawal(staker)
	if err != nil {
		return err
	}
	summary.DelegatedWithdrawal = receiver
	return utils.WriteJSON(w, summary)
}

func (s *Staking) handleGetRewards(w http.ResponseWriter, req *http.Request) error {
	staker, err := parseAddress(mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	rewards, err := s.staker.WithdrawableRewards(staker, s.now())
	if err != nil {
		return mapError(err)
	}
	out := make([]Reward, len(rewards))
	for i, r := range rewards {
		out[i] = Reward{Asset: string(r.Asset), Amount: amount(r.Amount)}
	}
	return utils.WriteJSON(w, out)
}

func (s *Staking) handleGetAnnualized(w http.ResponseWriter, _ *http.Request) error {
	rates, err := s.staker.AnnualizedRewards(s.now())
	if err != nil {
		return mapError(err)
	}
	out := make([]TierRates, len(rates))
	for i, tier := range rates {
		converted := make([]AssetRate, len(tier.Rates))
		for j, r := range tier.Rates {
			converted[j] = AssetRate{Asset: string(r.Asset), Rate: amount(r.Rate)}
		}
		out[i] = TierRates{Tier: uint64(tier.Tier), Rates: converted}
	}
	return utils.WriteJSON(w, out)
}

func (s *Staking) handleHistory(w http.ResponseWriter, req *http.Request) error {
	if s.journal == nil {
		return utils.HTTPError(errors.New("history not enabled"), http.StatusNotFound)
	}
	var filter eventdb.Filter
	if err := utils.ParseJSON(req.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	events, err := s.journal.Filter(&filter)
	if err != nil {
		return err
	}
	out := make([]HistoryEntry, len(events))
	for i, e := range events {
		out[i] = HistoryEntry{
			Sequence: e.Sequence,
			Time:     e.Time,
			Kind:     string(e.Kind),
			Asset:    e.Asset,
			Staker:   e.Staker,
			Tier:     e.Tier,
			Amount:   amount(e.Amount),
			Receiver: e.Receiver,
		}
	}
	return utils.WriteJSON(w, out)
}

func (s *Staking) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/flows").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(s.handleGetFlows))
	sub.Path("/flows").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(s.handleCreateFlow))
	sub.Path("/flows/{asset}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(s.handleGetFlow))
	sub.Path("/flows/{asset}/fund").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(s.handleFund))
	sub.Path("/flows/{asset}/distribute").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(s.handleDistribute))
	sub.Path("/rewards/annualized").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(s.handleGetAnnualized))
	sub.Path("/stakers/{address}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(s.handleGetStaker))
	sub.Path("/stakers/{address}/rewards").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(s.handleGetRewards))
	sub.Path("/stakers/{address}/delegate").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(s.handleDelegate))
	sub.Path("/stakers/{address}/unbond").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(s.handleUnbond))
	sub.Path("/stakers/{address}/rebond").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(s.handleRebond))
	sub.Path("/stakers/{address}/withdrawal-delegation").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(s.handleDelegateWithdrawal))
	sub.Path("/withdrawals").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(s.handleWithdraw))
	sub.Path("/mass-delegate").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(s.handleMassDelegate))
	sub.Path("/history").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(s.handleHistory))
}
