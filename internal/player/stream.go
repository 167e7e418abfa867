package player

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/llehouerou/onair/internal/icy"
)

const (
	userAgent = "onair"

	// chunkSamples is the size of one decoded block queued for the device.
	chunkSamples = 1024
	// bufferChunks bounds the decode-ahead queue (about 1.5s at 44.1kHz).
	bufferChunks = 64
)

var (
	speakerMu          sync.Mutex
	speakerInitialized bool
	speakerSampleRate  beep.SampleRate
)

// ensureSpeaker initializes the device at the first stream's sample rate and
// returns the rate all later streams are resampled to.
func ensureSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if !speakerInitialized {
		if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
			return 0, err
		}
		speakerSampleRate = rate
		speakerInitialized = true
	}
	return speakerSampleRate, nil
}

func streamSinkFactory(client *http.Client, stallTimeout time.Duration, logger *slog.Logger) SinkFactory {
	if client == nil {
		// No overall timeout: the body is read for as long as the stream plays.
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 15 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
			},
		}
	}
	return func(url string) Sink {
		return &streamSink{url: url, client: client, stallTimeout: stallTimeout, logger: logger}
	}
}

// streamSink plays one MP3 stream on the shared speaker.
// A reader goroutine decodes into a bounded queue; the speaker drains the
// queue and plays silence on underrun.
type streamSink struct {
	url          string
	client       *http.Client
	stallTimeout time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	closed  bool
	level   int
	volume  *effects.Volume
	cancel  context.CancelFunc
	started bool
}

func (s *streamSink) Start(ctx context.Context, hooks SinkHooks) {
	s.mu.Lock()
	if s.closed || s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	go func() {
		err := s.run(ctx, hooks)
		if err != nil && ctx.Err() == nil {
			hooks.OnError(err)
		}
	}()
}

func (s *streamSink) SetVolume(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = v
	if s.volume != nil {
		speaker.Lock()
		s.volume.Volume = levelToVolume(v)
		s.volume.Silent = v == 0
		speaker.Unlock()
	}
}

func (s *streamSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *streamSink) run(ctx context.Context, hooks SinkHooks) error {
	reqCtx, cancelReq := context.WithCancel(ctx)
	defer cancelReq()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(icy.RequestHeader, "1")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if err := checkContentType(resp.Header.Get("Content-Type")); err != nil {
		return err
	}

	interval := icy.Interval(resp.Header)
	s.logger.Debug("stream connected",
		"url", s.url,
		"content_type", resp.Header.Get("Content-Type"),
		"icy_name", resp.Header.Get("icy-name"),
		"metaint", interval)

	watch := newStallReader(resp.Body, s.stallTimeout, cancelReq)
	defer watch.stop()

	body := icy.NewReader(watch, interval, hooks.OnMetadata)
	dec, format, err := decodeMP3Stream(body)
	if err != nil {
		if watch.isStalled() {
			return ErrStalled
		}
		return fmt.Errorf("decode: %w", err)
	}

	rate, err := ensureSpeaker(format.SampleRate)
	if err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	queue := make(chan [][2]float64, bufferChunks)
	decodeErr := make(chan error, 1)
	go decodeInto(ctx, dec, queue, decodeErr)

	live := &liveStreamer{
		ctx:     ctx,
		queue:   queue,
		tap:     hooks.Tap,
		started: make(chan struct{}),
	}
	var out beep.Streamer = live
	if format.SampleRate != rate {
		out = beep.Resample(4, format.SampleRate, rate, live)
	}
	ended := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.volume = &effects.Volume{
		Streamer: out,
		Base:     2,
		Volume:   levelToVolume(s.level),
		Silent:   s.level == 0,
	}
	speaker.Play(beep.Seq(s.volume, beep.Callback(func() {
		close(ended)
	})))
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil
	case <-watch.stalled:
		return ErrStalled
	case <-live.started:
		hooks.OnPlaying()
	case <-ended:
		return streamEndErr(decodeErr)
	}

	select {
	case <-ctx.Done():
		return nil
	case <-watch.stalled:
		return ErrStalled
	case <-ended:
		return streamEndErr(decodeErr)
	}
}

func streamEndErr(decodeErr <-chan error) error {
	select {
	case err := <-decodeErr:
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	default:
	}
	return io.ErrUnexpectedEOF
}

func checkContentType(ct string) error {
	if ct == "" {
		return nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ct)
	}
	switch strings.ToLower(mt) {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3", "audio/x-mpeg", "audio/x-mp3", "application/octet-stream":
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt)
	}
}

// decodeInto pulls samples from dec into queue until the stream ends or ctx
// is done. It closes queue on exit.
func decodeInto(ctx context.Context, dec *mp3Stream, queue chan<- [][2]float64, errc chan<- error) {
	defer close(queue)
	for {
		chunk := make([][2]float64, chunkSamples)
		n, ok := dec.Stream(chunk)
		if !ok {
			errc <- dec.Err()
			return
		}
		select {
		case queue <- chunk[:n]:
		case <-ctx.Done():
			return
		}
	}
}

// liveStreamer feeds queued chunks to the speaker. An empty queue yields
// silence so a slow network never holds the speaker lock.
type liveStreamer struct {
	ctx     context.Context
	queue   <-chan [][2]float64
	tap     func([][2]float64)
	cur     [][2]float64
	once    sync.Once
	started chan struct{}
	done    bool
}

func (l *liveStreamer) Stream(samples [][2]float64) (int, bool) {
	if l.done || l.ctx.Err() != nil {
		return 0, false
	}

	filled := 0
	for filled < len(samples) {
		if len(l.cur) == 0 {
			select {
			case chunk, more := <-l.queue:
				if !more {
					l.done = true
				}
				l.cur = chunk
			default:
			}
			if len(l.cur) == 0 {
				break
			}
		}
		n := copy(samples[filled:], l.cur)
		l.cur = l.cur[n:]
		filled += n
	}

	if filled > 0 {
		if l.tap != nil {
			l.tap(samples[:filled])
		}
		l.once.Do(func() { close(l.started) })
	}
	if l.done && filled == 0 {
		return 0, false
	}

	clear(samples[filled:])
	return len(samples), true
}

func (l *liveStreamer) Err() error {
	return nil
}
