package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/SietraX/saved/internal/logging"
)

const (
	OutcomeStored  = "stored"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Job fetches transcripts from the transcript service and stores them. At most
// workers fetches run at once; Schedule never blocks the caller.
type Job struct {
	db      DB
	baseURL string
	http    *http.Client
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	log     zerolog.Logger

	// Observe, when set, is called with the outcome of every run.
	Observe func(outcome string)
}

func NewJob(db DB, baseURL string, workers int) *Job {
	if workers <= 0 {
		workers = 1
	}
	return &Job{
		db:      db,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		sem:     semaphore.NewWeighted(int64(workers)),
		log:     logging.Logger.With().Str("component", "transcript").Logger(),
	}
}

func (j *Job) WithHTTPClient(h *http.Client) *Job {
	j.http = h
	return j
}

func (j *Job) WithLogger(l zerolog.Logger) *Job {
	j.log = l
	return j
}

// Schedule runs Run in the background. Failures are logged only.
func (j *Job) Schedule(videoID, title string) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := j.Run(ctx, videoID, title); err != nil {
			j.log.Error().Err(err).Str("video_id", videoID).Msg("transcript: fetch failed")
		}
	}()
}

// Wait blocks until every scheduled run has finished.
func (j *Job) Wait() { j.wg.Wait() }

// Run fetches and stores one transcript unless it is already stored.
func (j *Job) Run(ctx context.Context, videoID, title string) (err error) {
	if err := j.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer j.sem.Release(1)

	outcome := OutcomeStored
	defer func() {
		if err != nil {
			outcome = OutcomeFailed
		}
		if j.Observe != nil {
			j.Observe(outcome)
		}
	}()

	ok, err := Exists(ctx, j.db, videoID)
	if err != nil {
		return fmt.Errorf("check transcript: %w", err)
	}
	if ok {
		outcome = OutcomeSkipped
		return nil
	}

	segs, err := j.fetch(ctx, videoID)
	if err != nil {
		return err
	}
	if err := Save(ctx, j.db, videoID, title, segs); err != nil {
		return fmt.Errorf("store transcript: %w", err)
	}
	j.log.Info().Str("video_id", videoID).Int("segments", len(segs)).Msg("transcript: stored")
	return nil
}

func (j *Job) fetch(ctx context.Context, videoID string) ([]Segment, error) {
	u := j.baseURL + "/api/transcript/" + url.PathEscape(videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := j.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Detail != "" {
			return nil, fmt.Errorf("transcript service status %d: %s", resp.StatusCode, e.Detail)
		}
		return nil, fmt.Errorf("transcript service status %d", resp.StatusCode)
	}

	var body struct {
		Transcript []Segment `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return body.Transcript, nil
}
