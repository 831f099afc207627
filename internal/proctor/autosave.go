package proctor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// AnswerSaver persists a batch of answers, usually over HTTP to the
// answers endpoint.
type AnswerSaver interface {
	SaveAnswers(ctx context.Context, answers []model.AnswerInput) error
}

// Autosave buffers answer edits in memory and flushes dirty entries in
// batches. Edits are visible locally immediately; a failed flush retries
// silently on the next cycle without clobbering newer edits.
type Autosave struct {
	mu      sync.Mutex
	answers map[string]string
	dirty   map[string]bool

	saver    AnswerSaver
	interval time.Duration
	log      zerolog.Logger
}

// NewAutosave creates an Autosave flushing every interval.
func NewAutosave(saver AnswerSaver, interval time.Duration, log zerolog.Logger) *Autosave {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Autosave{
		answers:  make(map[string]string),
		dirty:    make(map[string]bool),
		saver:    saver,
		interval: interval,
		log:      log.With().Str("component", "autosave").Logger(),
	}
}

// Set records an answer edit. Takes effect locally at once; persistence
// happens on the next flush.
func (a *Autosave) Set(questionID, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answers[questionID] = value
	a.dirty[questionID] = true
}

// Get returns the locally known answer for a question.
func (a *Autosave) Get(questionID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.answers[questionID]
	return v, ok
}

// Seed loads answers recovered from the server without marking them
// dirty, used on resume.
func (a *Autosave) Seed(answers map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for q, v := range answers {
		if _, edited := a.answers[q]; !edited {
			a.answers[q] = v
		}
	}
}

// Run flushes on the interval until ctx is done, then flushes once more.
func (a *Autosave) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.Flush(flushCtx); err != nil {
				a.log.Warn().Err(err).Msg("Final autosave flush failed")
			}
			cancel()
			return
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.log.Debug().Err(err).Msg("Autosave flush failed, will retry")
			}
		}
	}
}

// Flush persists all dirty answers. On failure the entries stay dirty,
// except where a newer edit already re-marked them.
func (a *Autosave) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.dirty) == 0 {
		a.mu.Unlock()
		return nil
	}
	batch := make([]model.AnswerInput, 0, len(a.dirty))
	flushed := make(map[string]string, len(a.dirty))
	for q := range a.dirty {
		batch = append(batch, model.AnswerInput{QuestionID: q, Value: a.answers[q]})
		flushed[q] = a.answers[q]
	}
	a.dirty = make(map[string]bool)
	a.mu.Unlock()

	if err := a.saver.SaveAnswers(ctx, batch); err != nil {
		a.mu.Lock()
		for q, v := range flushed {
			// Re-mark only if the value hasn't moved on since.
			if a.answers[q] == v && !a.dirty[q] {
				a.dirty[q] = true
			}
		}
		a.mu.Unlock()
		return err
	}
	return nil
}
