package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/log"
	"github.com/sirupsen/logrus"
)

const maxLineSize = 1 << 20

// Ready is the first line written by ServeStdio.
type Ready struct {
	Ready    bool     `json:"ready"`
	Commands []string `json:"commands"`
}

// Response is written for every request line.
type Response struct {
	ID     any    `json:"id,omitempty"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (w *lineWriter) write(v any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(v); err != nil {
		log.Warnf("stdio: write response: %v", err)
	}
}

// ServeStdio reads one JSON request per line from in and writes one response per line to out.
// Requests run concurrently so a later play can supersede an earlier one still resolving.
// It returns when in is exhausted and every request has been answered.
func (s *Service) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	w := &lineWriter{enc: json.NewEncoder(out)}
	w.write(Ready{Ready: true, Commands: Commands})

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var wg sync.WaitGroup
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req Request
		decoder := json.NewDecoder(bytes.NewReader(line))
		decoder.UseNumber()
		if err := decoder.Decode(&req); err != nil {
			w.write(Response{OK: false, Error: "Invalid JSON"})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			w.write(s.handle(ctx, req))
		}()
	}

	wg.Wait()
	return scanner.Err()
}

func (s *Service) handle(ctx context.Context, req Request) Response {
	log.With(logrus.Fields{"action": req.Action}).Debug("stdio: request")

	result, err := s.Dispatch(ctx, req.Action, req.Args)
	if err != nil {
		log.With(logrus.Fields{"action": req.Action, "kind": fault.KindOf(err).String()}).Debugf("stdio: %v", err)
		return Response{ID: req.ID, OK: false, Error: fault.Message(err)}
	}

	return Response{ID: req.ID, OK: true, Result: result}
}
