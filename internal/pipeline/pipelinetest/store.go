// Package pipelinetest provides in-memory doubles of the pipeline boundaries for
// tests. MemStore reproduces the conditional-write semantics of the Postgres
// store under a single mutex.
package pipelinetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

type analysisKey struct {
	app  uuid.UUID
	kind types.AnalysisKind
}

// MemStore is an in-memory pipeline.Store.
type MemStore struct {
	mu sync.Mutex

	now func() time.Time

	apps          map[uuid.UUID]*types.Application
	reviews       map[uuid.UUID]*types.ReviewProgress
	lineages      map[uuid.UUID]*types.EvaluationLineage
	evalClaims    map[uuid.UUID]uuid.UUID
	analyses      map[analysisKey]*types.AnalysisRecord
	interviews    map[uuid.UUID]*types.Interview
	history       map[uuid.UUID][]types.InterviewHistoryEntry
	decisions     map[uuid.UUID][]types.HiringDecision
	notifications map[uuid.UUID][]types.NotificationLogEntry

	// BeforeStatusWrite, when set, runs inside UpdateApplicationStatus before
	// the compare. Tests use it to interleave a competing write.
	BeforeStatusWrite func(upd types.StatusUpdate)
	// BeforeDecisionWrite runs at the start of RecordDecision, outside the lock.
	BeforeDecisionWrite func(d *types.HiringDecision)
}

var _ pipeline.Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		now:           time.Now,
		apps:          make(map[uuid.UUID]*types.Application),
		reviews:       make(map[uuid.UUID]*types.ReviewProgress),
		lineages:      make(map[uuid.UUID]*types.EvaluationLineage),
		evalClaims:    make(map[uuid.UUID]uuid.UUID),
		analyses:      make(map[analysisKey]*types.AnalysisRecord),
		interviews:    make(map[uuid.UUID]*types.Interview),
		history:       make(map[uuid.UUID][]types.InterviewHistoryEntry),
		decisions:     make(map[uuid.UUID][]types.HiringDecision),
		notifications: make(map[uuid.UUID][]types.NotificationLogEntry),
	}
}

// SetStatus overwrites an application's status without any checks.
func (m *MemStore) SetStatus(id uuid.UUID, status types.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app, ok := m.apps[id]; ok {
		app.Status = status
	}
}

// PutLineage overwrites an application's evaluation lineage.
func (m *MemStore) PutLineage(l *types.EvaluationLineage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lineages[l.ApplicationID] = l.Clone()
}

// ---- applications ----

func (m *MemStore) CreateApplication(_ context.Context, in *types.NewApplication) (*types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	app := &types.Application{
		ID:              uuid.New(),
		CandidateID:     in.CandidateID,
		CandidateName:   in.CandidateName,
		CandidateEmail:  in.CandidateEmail,
		JobID:           in.JobID,
		Status:          types.StatusPending,
		CVDocumentRef:   in.CVDocumentRef,
		DISCDocumentRef: in.DISCDocumentRef,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.apps[app.ID] = app
	out := *app
	return &out, nil
}

func (m *MemStore) GetApplication(_ context.Context, id uuid.UUID) (*types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appCopy(id), nil
}

func (m *MemStore) ListApplications(_ context.Context, f types.ApplicationFilter) ([]types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Application
	for _, app := range m.apps {
		if f.Status != "" && app.Status != f.Status {
			continue
		}
		if f.JobID != nil && app.JobID != *f.JobID {
			continue
		}
		if f.AssignedTo != nil && (app.AssignedTo == nil || *app.AssignedTo != *f.AssignedTo) {
			continue
		}
		out = append(out, *app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemStore) UpdateApplicationStatus(_ context.Context, upd types.StatusUpdate) (*types.Application, bool, error) {
	if m.BeforeStatusWrite != nil {
		m.BeforeStatusWrite(upd)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := m.applyStatus(upd)
	return m.appCopy(upd.ApplicationID), ok, nil
}

func (m *MemStore) MarkBusinessCaseCompleted(_ context.Context, id uuid.UUID) (*types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, nil
	}
	if !app.BusinessCaseCompleted {
		now := m.now()
		app.BusinessCaseCompleted = true
		app.BusinessCaseCompletedAt = &now
		app.UpdatedAt = now
	}
	return m.appCopy(id), nil
}

func (m *MemStore) AssignApplication(_ context.Context, id uuid.UUID, recruiterID *uuid.UUID) (*types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, nil
	}
	if recruiterID != nil {
		r := *recruiterID
		app.AssignedTo = &r
	} else {
		app.AssignedTo = nil
	}
	app.UpdatedAt = m.now()
	return m.appCopy(id), nil
}

// applyStatus must be called with mu held.
func (m *MemStore) applyStatus(upd types.StatusUpdate) bool {
	app, ok := m.apps[upd.ApplicationID]
	if !ok || app.Status != upd.From {
		return false
	}
	app.Status = upd.To
	if upd.BCQInvitationSentAt != nil {
		t := *upd.BCQInvitationSentAt
		app.BCQInvitationSentAt = &t
	}
	app.UpdatedAt = m.now()
	return true
}

func (m *MemStore) appCopy(id uuid.UUID) *types.Application {
	app, ok := m.apps[id]
	if !ok {
		return nil
	}
	out := *app
	return &out
}

// ---- reviews ----

func (m *MemStore) GetReviewProgress(_ context.Context, applicationID uuid.UUID) (*types.ReviewProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.reviews[applicationID]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (m *MemStore) SetReviewFlag(_ context.Context, applicationID uuid.UUID, flag types.ReviewFlag, value bool, actor uuid.UUID) (*types.ReviewProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.reviews[applicationID]
	if !ok {
		p = &types.ReviewProgress{ApplicationID: applicationID}
		m.reviews[applicationID] = p
	}
	if err := p.SetFlag(flag, value); err != nil {
		return nil, err
	}
	a := actor
	p.UpdatedBy = &a
	p.UpdatedAt = m.now()
	out := *p
	return &out, nil
}

// ---- evaluations ----

func (m *MemStore) GetEvaluationLineage(_ context.Context, applicationID uuid.UUID) (*types.EvaluationLineage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lineages[applicationID].Clone(), nil
}

func (m *MemStore) ClaimEvaluation(_ context.Context, applicationID, token uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.evalClaims[applicationID]; held {
		return pipeline.ErrAlreadyInProgress
	}
	m.evalClaims[applicationID] = token
	return nil
}

func (m *MemStore) CompleteEvaluation(_ context.Context, applicationID, token uuid.UUID, fold pipeline.LineageFold) (*types.EvaluationLineage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.evalClaims[applicationID]; !ok || held != token {
		return nil, pipeline.ErrConcurrencyConflict
	}
	next, err := fold(m.lineages[applicationID].Clone())
	if err != nil {
		return nil, err
	}
	delete(m.evalClaims, applicationID)
	m.lineages[applicationID] = next.Clone()
	return next.Clone(), nil
}

func (m *MemStore) ReleaseEvaluation(_ context.Context, applicationID, token uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.evalClaims[applicationID]; !ok || held != token {
		return false, nil
	}
	delete(m.evalClaims, applicationID)
	return true, nil
}

func (m *MemStore) ResetEvaluationClaim(_ context.Context, applicationID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.evalClaims[applicationID]
	delete(m.evalClaims, applicationID)
	return held, nil
}

// EvaluationClaimed reports whether an evaluation claim is held.
func (m *MemStore) EvaluationClaimed(applicationID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.evalClaims[applicationID]
	return held
}

// ---- analyses ----

func (m *MemStore) GetAnalysis(_ context.Context, applicationID uuid.UUID, kind types.AnalysisKind) (*types.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordCopy(analysisKey{applicationID, kind}), nil
}

func (m *MemStore) ListAnalyses(_ context.Context, applicationID uuid.UUID) ([]types.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.AnalysisRecord
	for _, kind := range types.AnalysisKinds {
		if rec := m.recordCopy(analysisKey{applicationID, kind}); rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *MemStore) ClaimAnalysis(_ context.Context, req pipeline.ClaimRequest) (*types.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := analysisKey{req.ApplicationID, req.Kind}
	now := m.now()
	rec, ok := m.analyses[key]
	if !ok {
		rec = &types.AnalysisRecord{ID: uuid.New(), ApplicationID: req.ApplicationID, Kind: req.Kind, CreatedAt: now}
		m.analyses[key] = rec
	} else if rec.Status == types.AnalysisProcessing {
		return nil, pipeline.ErrAlreadyInProgress
	}
	token, by := req.Token, req.RequestedBy
	rec.Status = types.AnalysisProcessing
	rec.ClaimToken = &token
	rec.RequestedBy = &by
	rec.InputRef = req.InputRef
	rec.ErrorMessage = nil
	rec.StartedAt = &now
	rec.CompletedAt = nil
	rec.UpdatedAt = now
	return m.recordCopy(key), nil
}

func (m *MemStore) CompleteAnalysis(_ context.Context, applicationID uuid.UUID, kind types.AnalysisKind, token uuid.UUID, result pipeline.AnalysisResult) (*types.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := analysisKey{applicationID, kind}
	if !m.holds(key, token) {
		return nil, pipeline.ErrConcurrencyConflict
	}
	m.complete(key, result)
	return m.recordCopy(key), nil
}

func (m *MemStore) FailAnalysis(_ context.Context, applicationID uuid.UUID, kind types.AnalysisKind, token uuid.UUID, message string) (*types.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := analysisKey{applicationID, kind}
	if !m.holds(key, token) {
		return nil, pipeline.ErrConcurrencyConflict
	}
	rec := m.analyses[key]
	now := m.now()
	msg := message
	rec.Status = types.AnalysisFailed
	rec.ErrorMessage = &msg
	rec.ClaimToken = nil
	rec.CompletedAt = &now
	rec.UpdatedAt = now
	return m.recordCopy(key), nil
}

func (m *MemStore) CompleteInterviewAnalysis(_ context.Context, applicationID, token uuid.UUID, fold pipeline.InterviewFold, advance types.StatusUpdate) (*pipeline.InterviewCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := analysisKey{applicationID, types.AnalysisInterview}
	if !m.holds(key, token) {
		return nil, pipeline.ErrConcurrencyConflict
	}
	lineage, result, err := fold(m.lineages[applicationID].Clone())
	if err != nil {
		return nil, err
	}
	m.complete(key, result)
	m.lineages[applicationID] = lineage.Clone()
	advanced := m.applyStatus(advance)
	return &pipeline.InterviewCompletion{
		Record:         m.recordCopy(key),
		Lineage:        lineage.Clone(),
		Application:    m.appCopy(applicationID),
		StatusAdvanced: advanced,
	}, nil
}

func (m *MemStore) ResetAnalysis(_ context.Context, applicationID uuid.UUID, kind types.AnalysisKind) (*types.AnalysisRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := analysisKey{applicationID, kind}
	rec, ok := m.analyses[key]
	if !ok {
		return nil, false, nil
	}
	if rec.Status != types.AnalysisProcessing {
		return m.recordCopy(key), false, nil
	}
	rec.Status = types.AnalysisPending
	rec.ClaimToken = nil
	rec.UpdatedAt = m.now()
	return m.recordCopy(key), true, nil
}

func (m *MemStore) holds(key analysisKey, token uuid.UUID) bool {
	rec, ok := m.analyses[key]
	return ok && rec.Status == types.AnalysisProcessing && rec.ClaimToken != nil && *rec.ClaimToken == token
}

func (m *MemStore) complete(key analysisKey, result pipeline.AnalysisResult) {
	rec := m.analyses[key]
	now := m.now()
	rec.Status = types.AnalysisCompleted
	rec.Analysis = result.Analysis
	rec.Summary = result.Summary
	rec.ErrorMessage = nil
	rec.ClaimToken = nil
	rec.CompletedAt = &now
	rec.UpdatedAt = now
}

func (m *MemStore) recordCopy(key analysisKey) *types.AnalysisRecord {
	rec, ok := m.analyses[key]
	if !ok {
		return nil
	}
	out := *rec
	return &out
}

// ---- interviews ----

func (m *MemStore) CreateInterview(_ context.Context, iv *types.Interview, entry *types.InterviewHistoryEntry, advance *types.StatusUpdate) (*types.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if advance != nil && !m.applyStatus(*advance) {
		return nil, pipeline.ErrConcurrencyConflict
	}
	stored := *iv
	m.interviews[iv.ID] = &stored
	m.history[iv.ID] = append(m.history[iv.ID], *entry)
	out := stored
	return &out, nil
}

func (m *MemStore) GetInterview(_ context.Context, id uuid.UUID) (*types.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interviews[id]
	if !ok {
		return nil, nil
	}
	out := *iv
	return &out, nil
}

func (m *MemStore) ListInterviews(_ context.Context, applicationID uuid.UUID) ([]types.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Interview
	for _, iv := range m.interviews {
		if iv.ApplicationID == applicationID {
			out = append(out, *iv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) UpdateInterview(_ context.Context, iv *types.Interview, expected types.InterviewStatus, entry *types.InterviewHistoryEntry) (*types.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.interviews[iv.ID]
	if !ok || cur.Status != expected {
		return nil, pipeline.ErrConcurrencyConflict
	}
	*cur = *iv
	m.history[iv.ID] = append(m.history[iv.ID], *entry)
	out := *cur
	return &out, nil
}

func (m *MemStore) ListInterviewHistory(_ context.Context, interviewID uuid.UUID) ([]types.InterviewHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.InterviewHistoryEntry(nil), m.history[interviewID]...), nil
}

// ---- decisions ----

func (m *MemStore) RecordDecision(_ context.Context, d *types.HiringDecision, advance *types.StatusUpdate) (*types.HiringDecision, error) {
	if m.BeforeDecisionWrite != nil {
		m.BeforeDecisionWrite(d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[d.ApplicationID]
	if !ok {
		return nil, pipeline.ErrNotFound
	}
	if app.Status.IsTerminal() {
		return nil, pipeline.ErrConcurrencyConflict
	}
	if advance != nil && !m.applyStatus(*advance) {
		return nil, pipeline.ErrConcurrencyConflict
	}
	m.decisions[d.ApplicationID] = append(m.decisions[d.ApplicationID], *d)
	out := *d
	return &out, nil
}

func (m *MemStore) ListDecisions(_ context.Context, applicationID uuid.UUID) ([]types.HiringDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.HiringDecision(nil), m.decisions[applicationID]...), nil
}

// ---- notifications ----

func (m *MemStore) AppendNotification(_ context.Context, entry *types.NotificationLogEntry) (*types.NotificationLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[entry.ApplicationID] = append(m.notifications[entry.ApplicationID], *entry)
	out := *entry
	return &out, nil
}

func (m *MemStore) ListNotifications(_ context.Context, applicationID uuid.UUID) ([]types.NotificationLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.notifications[applicationID]
	out := make([]types.NotificationLogEntry, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out, nil
}
