package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"nftstake/core/events"
	"nftstake/core/genesis"
	nftstate "nftstake/core/state"
	"nftstake/core/types"
	"nftstake/crypto"
	"nftstake/native/staking"
	"nftstake/observability/metrics"
	"nftstake/storage"
)

const instrumentationName = "nftstake/core"

// Options configures a Node.
type Options struct {
	ChainID       uint64
	ProgramLabel  string
	RecordDeposit uint64
	Logger        *slog.Logger
	Emitter       events.Emitter
	// AllowMigrate opens a ledger whose schema version differs from the
	// binary's.
	AllowMigrate bool
	// Receipts, when set, receives every committed receipt in commit order.
	Receipts ReceiptSink
}

// ReceiptSink is fed committed receipts, e.g. by an external event index.
// Its failures are logged; the ledger has already committed by then.
type ReceiptSink interface {
	IndexReceipt(ctx context.Context, receipt *types.Receipt) error
}

// Node is the single-writer ledger. It applies signed transactions one at a
// time; each transaction runs in its own journal and either commits in full
// or leaves no trace.
type Node struct {
	db            storage.Database
	state         *nftstate.Manager
	chainID       uint64
	programLabel  string
	program       [20]byte
	recordDeposit uint64

	stateMu sync.Mutex
	nowFn   func() int64
	emitter events.Emitter
	sink    ReceiptSink
	logger  *slog.Logger
	metrics *metrics.StakingMetrics
	tracer  trace.Tracer
	applied metric.Int64Counter

	stream eventStream
}

// NewNode opens a ledger over db.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if opts.ChainID == 0 {
		return nil, fmt.Errorf("core: chain id required")
	}
	label := strings.TrimSpace(opts.ProgramLabel)
	if label == "" {
		return nil, fmt.Errorf("core: program label required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	manager := nftstate.NewManager(db)
	if err := manager.EnsureSchemaVersion(opts.AllowMigrate); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	applied, err := otel.Meter(instrumentationName).Int64Counter("nftstake.transactions.applied",
		metric.WithDescription("Transactions applied by the ledger."))
	if err != nil {
		return nil, fmt.Errorf("core: create meter: %w", err)
	}
	return &Node{
		db:            db,
		state:         manager,
		chainID:       opts.ChainID,
		programLabel:  label,
		program:       crypto.ProgramID(label),
		recordDeposit: opts.RecordDeposit,
		nowFn:         func() int64 { return time.Now().Unix() },
		emitter:       emitter,
		sink:          opts.Receipts,
		logger:        logger.With("component", "ledger"),
		metrics:       metrics.Staking(),
		tracer:        otel.Tracer(instrumentationName),
		applied:       applied,
	}, nil
}

// SetNowFunc overrides the ledger clock.
func (n *Node) SetNowFunc(now func() int64) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	n.nowFn = now
}

// SetEmitter routes committed events to emitter.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	n.emitter = emitter
}

// ChainID returns the chain the node accepts transactions for.
func (n *Node) ChainID() uint64 { return n.chainID }

// Program returns the program identity the staking authorities derive from.
func (n *Node) Program() [20]byte { return n.program }

// ApplyGenesis seeds an empty ledger. Re-applying to a seeded ledger is a
// no-op when the genesis, the ledger and the node agree on chain id and
// program label.
func (n *Node) ApplyGenesis(spec *genesis.GenesisSpec) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	chainID, label, ok, err := genesis.Applied(n.state)
	if err != nil {
		return err
	}
	if ok {
		if chainID != n.chainID || label != n.programLabel {
			return fmt.Errorf("core: ledger was seeded for chain %d program %q", chainID, label)
		}
		if spec.ChainID != chainID || spec.ProgramLabel != label {
			return fmt.Errorf("core: genesis targets chain %d program %q but ledger was seeded for chain %d program %q",
				spec.ChainID, spec.ProgramLabel, chainID, label)
		}
		return nil
	}
	if spec.ChainID != n.chainID || spec.ProgramLabel != n.programLabel {
		return fmt.Errorf("core: genesis targets chain %d program %q", spec.ChainID, spec.ProgramLabel)
	}
	if err := genesis.BuildGenesisFromSpec(spec, n.state); err != nil {
		return err
	}
	n.logger.Info("genesis applied",
		"chainId", spec.ChainID,
		"deposits", len(spec.Allocations()),
		"rewardMint", spec.RewardMint != nil)
	return nil
}

func (n *Node) newEngine(journal *nftstate.Journal, emitter events.Emitter) *staking.Engine {
	engine := staking.NewEngine(n.program)
	engine.SetState(journal)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(n.nowFn)
	engine.SetRecordDeposit(n.recordDeposit)
	return engine
}

// ApplyTransaction validates and executes tx. On failure nothing is written,
// the signer's nonce is not consumed and the returned error carries the
// failure kind; a failed receipt is returned alongside it when the
// transaction got as far as execution.
func (n *Node) ApplyTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	_, span := n.tracer.Start(ctx, "core.ApplyTransaction",
		trace.WithAttributes(attribute.String("tx.type", tx.Type.String())))
	defer span.End()

	start := time.Now()
	n.stateMu.Lock()
	receipt, err := n.applyLocked(tx)
	if err == nil && n.sink != nil {
		if sinkErr := n.sink.IndexReceipt(ctx, receipt); sinkErr != nil {
			n.logger.Error("receipt sink failed", "txType", tx.Type.String(), "error", sinkErr)
		}
	}
	n.stateMu.Unlock()

	kind := ErrorKind(err)
	n.metrics.ObserveTransaction(tx.Type.String(), kind, time.Since(start))
	outcome := "success"
	if err != nil {
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		n.logger.Warn("transaction rejected", "txType", tx.Type.String(), "kind", kind, "error", err)
	}
	n.applied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", tx.Type.String()),
		attribute.String("outcome", outcome)))
	return receipt, err
}

func (n *Node) applyLocked(tx *types.Transaction) (*types.Receipt, error) {
	if tx.ChainID != n.chainID {
		return nil, fmt.Errorf("%w: got %d want %d", ErrInvalidChainID, tx.ChainID, n.chainID)
	}
	if !tx.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTxType, tx.Type)
	}
	from, err := tx.From()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	var signer [20]byte
	copy(signer[:], from)

	journal := n.state.Begin()
	committed := false
	defer func() {
		if !committed {
			journal.Discard()
		}
	}()

	account, err := journal.Account(signer)
	if err != nil {
		return nil, err
	}
	if tx.Nonce != account.Nonce {
		return nil, fmt.Errorf("%w: got %d want %d", ErrNonceMismatch, tx.Nonce, account.Nonce)
	}

	now := n.nowFn()
	receipt := &types.Receipt{TxHash: hash, Type: tx.Type, Timestamp: now}
	recorder := &events.Recorder{}
	engine := n.newEngine(journal, recorder)
	engine.SetNowFunc(func() int64 { return now })

	effect, err := n.dispatch(engine, signer, tx)
	if err != nil {
		recorder.Reset()
		receipt.Status = types.ReceiptFailed
		receipt.Error = err.Error()
		receipt.ErrorKind = ErrorKind(err)
		return receipt, err
	}

	// The engine may have moved the signer's deposit, so reload before bumping.
	account, err = journal.Account(signer)
	if err != nil {
		return nil, err
	}
	account.Nonce++
	if err := journal.PutAccount(account); err != nil {
		return nil, err
	}
	if err := journal.Commit(); err != nil {
		return nil, fmt.Errorf("core: commit: %w", err)
	}
	committed = true

	receipt.Status = types.ReceiptSuccess
	receipt.Events = recorder.Payloads()
	recorder.Flush(n.emitter)
	n.publishReceipt(receipt)
	n.observeEffect(effect)
	n.logger.Info("transaction applied",
		"txType", tx.Type.String(),
		"signer", crypto.Render(signer),
		"nonce", tx.Nonce,
		"events", len(receipt.Events))
	return receipt, nil
}

func (n *Node) observeEffect(effect txEffect) {
	if effect.recordOpened {
		n.metrics.RecordOpened()
	}
	if effect.recordClosed {
		n.metrics.RecordClosed()
	}
	if effect.rewards > 0 {
		n.metrics.AddRewards(effect.rewards)
	}
}
