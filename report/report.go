// Package report defines the structured records emitted by webclip.
// Sinks, the job store, the HTTP API and the CLI report file all carry
// these types, so consumers only need to import this package.
package report

import (
	"encoding/json"
	"time"

	"github.com/hazyhaar/webclip/pageshot"
)

// Strategy is the processing path chosen for a URL.
type Strategy string

const (
	StrategyMarkdown Strategy = "TEXT->markdown"
	StrategyCapture  Strategy = "IMAGES_ONLY->pdf"
	StrategyOutline  Strategy = "PARTIAL->outline+pdf"
)

// State is the lifecycle state of a job.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Artifact is one file written for a URL.
type Artifact struct {
	Kind  string `json:"kind"` // markdown, pdf, png, rtf
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
	Pages int    `json:"pages,omitempty"`
}

// Capture summarises the capture-and-stitch run of one page.
type Capture struct {
	PageHeight     int               `json:"page_height"`
	PlannedRegions int               `json:"planned_regions"`
	DroppedRegions int               `json:"dropped_regions"`
	Dropped        []pageshot.Region `json:"dropped,omitempty"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	Chunks         int               `json:"chunks,omitempty"`
	Seams          map[string]int    `json:"seams,omitempty"` // strategy -> count
	Status         pageshot.Status   `json:"status"`
	ElapsedMS      int64             `json:"elapsed_ms"`
}

// Report is the outcome of processing one URL.
type Report struct {
	ID         string     `json:"id"` // UUIDv7
	URL        string     `json:"url"`
	Title      string     `json:"title,omitempty"`
	Mode       string     `json:"mode"`
	Class      string     `json:"class,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Strategy   Strategy   `json:"strategy,omitempty"`
	State      State      `json:"state"`
	Artifacts  []Artifact `json:"artifacts,omitempty"`
	Capture    *Capture   `json:"capture,omitempty"`
	Note       string     `json:"note,omitempty"` // fallback note written into outlines
	Error      string     `json:"error,omitempty"`
	StartedAt  int64      `json:"started_at"` // epoch milliseconds
	FinishedAt int64      `json:"finished_at,omitempty"`
}

// Degraded reports whether the capture finished with any degradation flag.
func (r *Report) Degraded() bool {
	if r.Capture == nil {
		return false
	}
	s := r.Capture.Status
	return s.PlanningDegenerate || s.StitchDegraded || r.Capture.DroppedRegions > 0
}

// Elapsed is the wall time between start and finish.
func (r *Report) Elapsed() time.Duration {
	if r.FinishedAt == 0 {
		return 0
	}
	return time.Duration(r.FinishedAt-r.StartedAt) * time.Millisecond
}

// Batch is the outcome of a multi-URL run.
type Batch struct {
	ID         string     `json:"id"`
	Reports    []Report   `json:"reports"`
	MergedPDF  string     `json:"merged_pdf,omitempty"`
	Pages      int        `json:"pages,omitempty"`
	Artifacts  []Artifact `json:"artifacts,omitempty"` // merged PDF and RTF
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	StartedAt  int64      `json:"started_at"`
	FinishedAt int64      `json:"finished_at"`
}

// Tally recounts Succeeded and Failed from Reports.
func (b *Batch) Tally() {
	b.Succeeded, b.Failed = 0, 0
	for _, r := range b.Reports {
		if r.State == StateFailed {
			b.Failed++
		} else {
			b.Succeeded++
		}
	}
}

// Summarize builds a Capture from a pageshot result.
func Summarize(res *pageshot.Result) *Capture {
	if res == nil {
		return nil
	}
	c := &Capture{
		PageHeight:     res.Geometry.TotalHeight,
		PlannedRegions: res.PlannedRegions,
		DroppedRegions: res.DroppedRegions,
		Dropped:        res.Dropped,
		Status:         res.Status,
		ElapsedMS:      res.Elapsed.Milliseconds(),
	}
	if res.Composite != nil {
		c.Width, c.Height = res.Composite.Width, res.Composite.Height
		for _, s := range res.Composite.Seams {
			if c.Seams == nil {
				c.Seams = make(map[string]int)
			}
			c.Seams[string(s.Strategy)]++
		}
	}
	if res.Chunks != nil {
		c.Chunks = len(res.Chunks.Chunks)
	}
	return c
}

// Marshal serialises a Report to JSON.
func Marshal(r *Report) ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal deserialises a Report from JSON.
func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Now returns the current time in epoch milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}
