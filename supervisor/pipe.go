package supervisor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sync"

	apperrors "github.com/kbukum/graceful/errors"
	"github.com/kbukum/graceful/logger"
)

// ErrClosed is returned by Notify after Close.
var ErrClosed = errors.New("supervisor: channel closed")

// Pipe is a bidirectional channel carrying one JSON string per line.
type Pipe struct {
	rw  io.ReadWriteCloser
	log *logger.Logger

	wmu  sync.Mutex
	msgs chan string
	done chan struct{}
	once sync.Once
}

// NewPipe starts reading from rw. Lines that are not JSON strings are
// skipped.
func NewPipe(rw io.ReadWriteCloser, log *logger.Logger) *Pipe {
	if log == nil {
		log = logger.WithComponent("supervisor")
	}
	p := &Pipe{
		rw:   rw,
		log:  log,
		msgs: make(chan string, 16),
		done: make(chan struct{}),
	}
	go p.read()
	return p
}

func (p *Pipe) read() {
	defer close(p.msgs)
	sc := bufio.NewScanner(p.rw)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg string
		if err := json.Unmarshal(line, &msg); err != nil {
			p.log.Debug("Skipping supervisor message", logger.Fields("raw", string(line)))
			continue
		}
		select {
		case p.msgs <- msg:
		case <-p.done:
			return
		}
	}
	if err := sc.Err(); err != nil && !p.closed() {
		p.log.Warn("Supervisor channel read failed", logger.ErrorFields("read", err))
	}
}

// Notify writes msg as one JSON line.
func (p *Pipe) Notify(msg string) error {
	if p.closed() {
		return apperrors.Supervisor("notify", ErrClosed)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return apperrors.Supervisor("notify", err)
	}
	b = append(b, '\n')

	p.wmu.Lock()
	defer p.wmu.Unlock()
	if _, err := p.rw.Write(b); err != nil {
		return apperrors.Supervisor("notify", err)
	}
	return nil
}

// Messages delivers inbound messages until the peer hangs up or Close is
// called.
func (p *Pipe) Messages() <-chan string { return p.msgs }

// Close closes the underlying connection.
func (p *Pipe) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.rw.Close()
	})
	return err
}

// Kind returns "pipe".
func (p *Pipe) Kind() string { return kindPipe }

func (p *Pipe) closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
