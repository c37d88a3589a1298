// Public domain.

package ephemeris

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/unit"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/curtisa1/icqsplitter/internal/retry"
)

// HorizonsURL is the JPL Horizons API endpoint.
var HorizonsURL = "https://ssd.jpl.nasa.gov/api/horizons.api"

// Horizons quantity codes: heliocentric range, observer range, and
// sun-target-observer angle.
const horizonsQuantities = "19,20,24"

// Horizons layout of the date column with a minute step.
const horizonsDate = "2006-Jan-02 15:04"

// ErrUnavailable marks Horizons failures worth retrying: transport errors
// and 429 or 5xx replies.
var ErrUnavailable = errors.New("horizons unavailable")

// Retryable lists the errors Horizons requests are retried on.  It is used
// when Retry.Retryable is empty.
var Retryable = []error{ErrUnavailable, context.DeadlineExceeded}

// Horizons fetches geocentric observer ephemerides from the JPL Horizons
// API.
type Horizons struct {
	URL     string // defaults to HorizonsURL
	Command string // target, as Horizons COMMAND, for example "902014;"
	// MaxSteps limits grid steps per request.  Longer ranges are split.
	MaxSteps int
	Timeout  time.Duration // per request
	Client   *http.Client
	Limiter  *rate.Limiter // paces requests; nil for no pacing
	Retry    retry.Config
	Log      *zap.Logger
}

// NewHorizons returns a client with working defaults.
func NewHorizons(command string, log *zap.Logger) *Horizons {
	rc := retry.DefaultConfig()
	rc.Logger = log
	rc.Retryable = Retryable
	return &Horizons{
		URL:      HorizonsURL,
		Command:  command,
		MaxSteps: 90000,
		Timeout:  2 * time.Minute,
		Client:   http.DefaultClient,
		Limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		Retry:    rc,
		Log:      log.Named("horizons"),
	}
}

// Samples implements Source.
func (h *Horizons) Samples(ctx context.Context, start, stop time.Time, step time.Duration) ([]Sample, error) {
	if err := CheckIncrement(step); err != nil {
		return nil, err
	}
	if stop.Before(start) {
		return nil, fmt.Errorf("ephemeris: stop %v before start %v", stop, start)
	}
	maxSteps := h.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 90000
	}
	rc := h.Retry
	if len(rc.Retryable) == 0 {
		rc.Retryable = Retryable
	}
	var all []Sample
	for c0 := start; !c0.After(stop); {
		c1 := c0.Add(time.Duration(maxSteps-1) * step)
		if c1.After(stop) {
			c1 = stop
		}
		if h.Limiter != nil {
			if err := h.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		ss, err := retry.DoWithResult(ctx, rc, func() ([]Sample, error) {
			return h.chunk(ctx, c0, c1, step)
		})
		if err != nil {
			return nil, fmt.Errorf("horizons %s to %s: %w",
				c0.Format(horizonsDate), c1.Format(horizonsDate), err)
		}
		h.Log.Info("ephemeris chunk fetched",
			zap.Time("start", c0),
			zap.Time("stop", c1),
			zap.Int("samples", len(ss)))
		all = append(all, ss...)
		c0 = c1.Add(step)
	}
	return all, nil
}

// Query returns the request URL for one chunk.
func (h *Horizons) Query(start, stop time.Time, step time.Duration) string {
	base := h.URL
	if base == "" {
		base = HorizonsURL
	}
	q := url.Values{}
	q.Set("format", "text")
	q.Set("COMMAND", quote(h.Command))
	q.Set("OBJ_DATA", "'NO'")
	q.Set("MAKE_EPHEM", "'YES'")
	q.Set("EPHEM_TYPE", "'OBSERVER'")
	q.Set("CENTER", "'500@399'")
	q.Set("START_TIME", quote(start.UTC().Format("2006-01-02 15:04")))
	q.Set("STOP_TIME", quote(stop.UTC().Format("2006-01-02 15:04")))
	q.Set("STEP_SIZE", quote(fmt.Sprintf("%d m", int(step/time.Minute))))
	q.Set("QUANTITIES", quote(horizonsQuantities))
	q.Set("CSV_FORMAT", "'YES'")
	return base + "?" + q.Encode()
}

func quote(s string) string { return "'" + s + "'" }

func (h *Horizons) chunk(ctx context.Context, start, stop time.Time, step time.Duration) ([]Sample, error) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.Query(start, stop, step), nil)
	if err != nil {
		return nil, err
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("horizons: %s", resp.Status)
	}
	return ParseHorizons(resp.Body)
}

// ParseHorizons reads the CSV table between $$SOE and $$EOE of a text
// format Horizons observer ephemeris.  Columns are located by the header
// line above $$SOE.  Phase angles reported as n.a. are derived.
func ParseHorizons(r io.Reader) ([]Sample, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	var header, first string
	cols := map[string]int{}
	inTable := false
	var ss []Sample
	for sc.Scan() {
		line := sc.Text()
		if first == "" && strings.TrimSpace(line) != "" {
			first = strings.TrimSpace(line)
		}
		switch {
		case strings.HasPrefix(line, "$$SOE"):
			for i, h := range strings.Split(header, ",") {
				cols[strings.TrimSpace(h)] = i
			}
			for _, c := range []string{"r", "delta", "S-T-O"} {
				if _, ok := cols[c]; !ok {
					return nil, fmt.Errorf("horizons: header lacks column %q", c)
				}
			}
			inTable = true
			continue
		case strings.HasPrefix(line, "$$EOE"):
			inTable = false
			continue
		case !inTable:
			if strings.Contains(line, "Date__(UT)__HR:MN") {
				header = line
			}
			continue
		}
		s, err := parseHorizonsRow(strings.Split(line, ","), cols)
		if err != nil {
			return nil, err
		}
		ss = append(ss, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(ss) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSamples, first)
	}
	fillPhase(ss)
	return ss, nil
}

func parseHorizonsRow(f []string, cols map[string]int) (s Sample, err error) {
	get := func(c string) string {
		if i := cols[c]; i < len(f) {
			return strings.TrimSpace(f[i])
		}
		return ""
	}
	if s.Time, err = time.Parse(horizonsDate, strings.TrimSpace(f[0])); err != nil {
		return s, fmt.Errorf("horizons: date: %w", err)
	}
	if s.R, err = strconv.ParseFloat(get("r"), 64); err != nil {
		return s, fmt.Errorf("horizons: r at %s: %w", f[0], err)
	}
	if s.Delta, err = strconv.ParseFloat(get("delta"), 64); err != nil {
		return s, fmt.Errorf("horizons: delta at %s: %w", f[0], err)
	}
	if p, perr := strconv.ParseFloat(get("S-T-O"), 64); perr == nil {
		s.Phase = unit.AngleFromDeg(p)
	} else {
		s.Phase = unit.Angle(math.NaN())
	}
	return s, nil
}
