package syncer

import (
	"sync"
	"time"
)

// Stage is the step a sync cycle is in.
type Stage string

const (
	StageIdle              Stage = "idle"
	StageLatestHeight      Stage = "fetching_latest_height"
	StageSeeding           Stage = "seeding_genesis"
	StageDownloadingBlocks Stage = "downloading_blocks"
	StageInsertingBlocks   Stage = "inserting_blocks"
	StageDownloadingTxs    Stage = "downloading_transactions"
	StageProcessing        Stage = "processing_messages"
	StageRebuilding        Stage = "rebuilding"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// Snapshot is a point in time copy of the coordinator state, served as JSON
// on /status.
type Snapshot struct {
	Stage          Stage `json:"stage"`
	Running        bool  `json:"running"`
	TargetHeight   int64 `json:"targetHeight"`
	ChainHeight    int64 `json:"chainHeight"`
	BlocksHeight   int64 `json:"blocksCheckpoint"`
	TxsHeight      int64 `json:"txsCheckpoint"`
	InsertedHeight int64 `json:"insertedHeight"`

	// StageDone/StageTotal report progress inside the current stage.
	StageDone  int64 `json:"stageDone"`
	StageTotal int64 `json:"stageTotal"`

	BlocksInserted   int64         `json:"blocksInserted"`
	TxsDownloaded    int64         `json:"txsDownloaded"`
	TxsFailed        int64         `json:"txsFailed"`
	BlocksProcessed  int64         `json:"blocksProcessed"`
	Cycles           int64         `json:"cycles"`
	FailedCycles     int64         `json:"failedCycles"`
	CycleStartedAt   time.Time     `json:"cycleStartedAt"`
	LastCycleEndedAt time.Time     `json:"lastCycleEndedAt"`
	LastCycleTook    time.Duration `json:"lastCycleTookNs"`
	LastError        string        `json:"lastError,omitempty"`
	LastErrorStage   Stage         `json:"lastErrorStage,omitempty"`
}

// Status is the mutable, concurrency safe holder behind Snapshot.
type Status struct {
	mu sync.RWMutex
	s  Snapshot
}

func NewStatus() *Status {
	return &Status{s: Snapshot{Stage: StageIdle}}
}

func (st *Status) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

func (st *Status) update(fn func(s *Snapshot)) {
	st.mu.Lock()
	fn(&st.s)
	st.mu.Unlock()
}

func (st *Status) begin(now time.Time) {
	st.update(func(s *Snapshot) {
		s.Running = true
		s.Stage = StageLatestHeight
		s.CycleStartedAt = now
		s.StageDone, s.StageTotal = 0, 0
	})
}

func (st *Status) enter(stage Stage, total int64) {
	st.update(func(s *Snapshot) {
		s.Stage = stage
		s.StageDone, s.StageTotal = 0, total
	})
}

func (st *Status) advance(n int64) {
	st.update(func(s *Snapshot) { s.StageDone += n })
}

func (st *Status) finish(now time.Time, err error) {
	st.update(func(s *Snapshot) {
		s.Running = false
		s.Cycles++
		s.LastCycleEndedAt = now
		s.LastCycleTook = now.Sub(s.CycleStartedAt)
		if err != nil {
			s.FailedCycles++
			s.LastError = err.Error()
			s.LastErrorStage = s.Stage
			s.Stage = StageFailed
			return
		}
		s.LastError, s.LastErrorStage = "", ""
		s.Stage = StageDone
	})
}
