package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vigilexam/vigil-backend/internal/logger"
	"github.com/vigilexam/vigil-backend/internal/model"
	"github.com/vigilexam/vigil-backend/internal/proctor"
)

// agent is a headless candidate client: it starts or resumes an attempt,
// replays a scripted signal sequence through the full client pipeline
// (classify, monitor, durable queue, autosave) and optionally submits.
// Useful for manual verification and soak testing against a live server.

type attemptInfo struct {
	AttemptID          string    `json:"attempt_id"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	Status             string    `json:"status"`
	Token              string    `json:"token"`
	ViolationThreshold int       `json:"violation_threshold"`
	WarningLeadSeconds int       `json:"warning_lead_seconds"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type scriptStep struct {
	Signal     string `json:"signal,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
	Answer     *struct {
		QuestionID string `json:"question_id"`
		Value      string `json:"value"`
	} `json:"answer,omitempty"`
	SleepMs int  `json:"sleep_ms,omitempty"`
	Submit  bool `json:"submit,omitempty"`
}

type apiClient struct {
	http      *http.Client
	baseURL   string
	token     string
	attemptID string
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%s %s: status %d, unparseable body", method, path, resp.StatusCode)
	}
	if env.Error != nil {
		return fmt.Errorf("%s %s: %s (%s)", method, path, env.Error.Message, env.Error.Code)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// SaveAnswers implements proctor.AnswerSaver over the answers endpoint.
func (c *apiClient) SaveAnswers(ctx context.Context, answers []model.AnswerInput) error {
	path := fmt.Sprintf("/api/v1/attempt/%s/answers", c.attemptID)
	return c.do(ctx, http.MethodPost, path, model.SaveAnswersRequest{Answers: answers}, nil)
}

func main() {
	var (
		serverURL  string
		userID     string
		stateDir   string
		scriptPath string
	)
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "Server base URL")
	flag.StringVar(&userID, "user", "", "Candidate user ID (required)")
	flag.StringVar(&stateDir, "state", ".agent-state", "Directory for the pending-event store")
	flag.StringVar(&scriptPath, "script", "", "JSON script of signals and answers to replay")
	flag.Parse()

	log := logger.Setup("debug", "console")

	if userID == "" {
		log.Fatal().Msg("-user is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &apiClient{http: &http.Client{Timeout: 10 * time.Second}, baseURL: serverURL}

	// ─── Start or Resume ───────────────────────────────────────────────
	var info attemptInfo
	err := client.do(ctx, http.MethodGet, "/api/v1/attempt/status/"+userID, nil, &info)
	if err != nil || info.AttemptID == "" || info.Status != string(model.AttemptStatusInProgress) {
		if err := client.do(ctx, http.MethodPost, "/api/v1/attempt/start",
			model.StartAttemptRequest{UserID: userID}, &info); err != nil {
			log.Fatal().Err(err).Msg("Failed to start attempt")
		}
		log.Info().Str("attempt_id", info.AttemptID).Msg("Attempt started")
	} else {
		log.Info().Str("attempt_id", info.AttemptID).Msg("Attempt resumed")
	}
	client.token = info.Token
	client.attemptID = info.AttemptID

	// ─── Client Pipeline ───────────────────────────────────────────────
	source := proctor.NewSource(64)
	signals := source.Start()
	defer source.Stop()

	confirmed := proctor.NewConfirmedChannel(serverURL, info.AttemptID, map[string]interface{}{
		"client": "vigil-agent",
	})
	queue := proctor.NewQueue(
		proctor.NewFileStore(stateDir, info.AttemptID),
		confirmed,
		proctor.NewBestEffortChannel(confirmed),
		proctor.DefaultFlushInterval,
		log,
	)
	go queue.Run(ctx)

	autosave := proctor.NewAutosave(client, proctor.DefaultFlushInterval, log)
	go autosave.Run(ctx)

	submit := func(auto bool) {
		kind := proctor.SignalTestSubmitted
		if auto {
			kind = proctor.SignalAutoSubmitted
		}
		source.Emit(proctor.Signal{Kind: kind})
		queue.Kick()
		path := fmt.Sprintf("/api/v1/attempt/submit/%s", info.AttemptID)
		if err := client.do(ctx, http.MethodPost, path, nil, nil); err != nil {
			log.Warn().Err(err).Msg("Submit rejected")
		} else {
			log.Info().Msg("Attempt submitted")
		}
	}

	monitor := proctor.NewMonitor(info.ViolationThreshold, func() {
		log.Warn().Msg("Violation limit reached, auto-submitting")
		source.Emit(proctor.Signal{Kind: proctor.SignalViolationLimit})
		source.Emit(proctor.Signal{Kind: proctor.SignalAutoSubmit})
		submit(true)
	})

	timer := proctor.NewTimer(info.EndTime, time.Duration(info.WarningLeadSeconds)*time.Second, source, func() {
		log.Warn().Msg("Timer expired")
	})
	go timer.Run(ctx)

	// Pipeline pump: classify raw signals, feed the monitor, enqueue.
	go func() {
		for sig := range signals {
			cls, ok := proctor.Classify(sig.Kind)
			if !ok {
				log.Warn().Str("kind", string(sig.Kind)).Msg("Unknown signal, dropped")
				continue
			}
			event := model.IncomingEvent{
				EventType: cls.EventType,
				Timestamp: sig.At,
				Metadata:  sig.Detail,
			}
			if cls.QuestionScoped && sig.QuestionID != "" {
				qid := sig.QuestionID
				event.QuestionID = &qid
			}
			if err := queue.Enqueue(event); err != nil {
				log.Error().Err(err).Msg("Enqueue failed")
			}
			if count, crossed := monitor.Observe(cls); crossed {
				log.Warn().Int("count", count).Msg("Limit crossed")
			}
			if cls.Teardown {
				// The session may be going away. Fire the pending snapshot
				// through the unconfirmed channel; the events stay queued
				// until a confirmed flush reconciles them.
				queue.FlushBestEffort(ctx)
			}
			if sig.Kind == proctor.SignalTabVisible {
				// Visibility regained: push whatever piled up while hidden.
				queue.Kick()
			}
		}
	}()

	// ─── Script Replay ─────────────────────────────────────────────────
	if scriptPath != "" {
		data, err := os.ReadFile(scriptPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read script")
		}
		var steps []scriptStep
		if err := json.Unmarshal(data, &steps); err != nil {
			log.Fatal().Err(err).Msg("Failed to parse script")
		}

		for _, step := range steps {
			switch {
			case step.Signal != "":
				source.Emit(proctor.Signal{Kind: proctor.SignalKind(step.Signal), QuestionID: step.QuestionID})
			case step.Answer != nil:
				autosave.Set(step.Answer.QuestionID, step.Answer.Value)
			case step.Submit:
				submit(false)
			}
			if step.SleepMs > 0 {
				time.Sleep(time.Duration(step.SleepMs) * time.Millisecond)
			}
		}

		// Let the queue and autosave drain before exiting.
		time.Sleep(proctor.DefaultFlushInterval + time.Second)
		return
	}

	// No script: stay up until interrupted, useful for manual poking.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	queue.FlushBestEffort(ctx)
	log.Info().Int("pending", queue.Len()).Msg("Agent stopping")
}
