// Package mcu is the host end of the ramp firmware link. It frames
// commands, waits for their acknowledgement and hands ramp_status
// responses to the caller.
package mcu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stepgen/host/serial"
	"stepgen/protocol"
)

var (
	ErrClosed = errors.New("mcu: link closed")
	ErrNoAck  = errors.New("mcu: command not acknowledged")
)

const (
	// DefaultRetransmit is how long Send waits for an ack before resending.
	DefaultRetransmit = 250 * time.Millisecond
	// DefaultRetries bounds resends of one block.
	DefaultRetries = 8

	statusBacklog = 64
)

// MCU is a connection to one board.
type MCU struct {
	rw  io.ReadWriteCloser
	log *zap.Logger

	// Retransmit and Retries may be changed before the first Send.
	Retransmit time.Duration
	Retries    int

	sendMu sync.Mutex
	seq    uint8

	acks   chan uint8
	status chan *protocol.RampStatus

	g      *errgroup.Group
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Connect opens the serial device and starts the link.
func Connect(cfg *serial.Config, log *zap.Logger) (*MCU, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flush %s: %w", cfg.Device, err)
	}
	log.Info("connected", zap.String("device", cfg.Device), zap.Int("baud", cfg.Baud))
	return New(port, log), nil
}

// New starts a link over rw. The MCU owns rw from here on.
func New(rw io.ReadWriteCloser, log *zap.Logger) *MCU {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	m := &MCU{
		rw:         rw,
		log:        log,
		Retransmit: DefaultRetransmit,
		Retries:    DefaultRetries,
		seq:        protocol.MessageDest,
		acks:       make(chan uint8, 16),
		status:     make(chan *protocol.RampStatus, statusBacklog),
		g:          g,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	g.Go(func() error {
		defer close(m.done)
		return m.readLoop(ctx)
	})
	return m
}

// Close stops the read loop and closes the stream. It returns the error
// that ended the read loop, if it was not the close itself.
func (m *MCU) Close() error {
	m.closeOnce.Do(func() {
		m.cancel()
		err := m.rw.Close()
		if werr := m.g.Wait(); werr != nil {
			err = werr
		}
		m.closeErr = err
	})
	return m.closeErr
}

func (m *MCU) readLoop(ctx context.Context) error {
	var pending []byte
	buf := make([]byte, 256)
	for {
		n, err := m.rw.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			pending = m.consume(pending)
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}

// consume handles every complete block in data and returns the rest.
func (m *MCU) consume(data []byte) []byte {
	for len(data) > 0 {
		if data[0] == protocol.MessageValueSync {
			data = data[1:]
			continue
		}
		f, n, err := protocol.ParseFrame(data)
		if err != nil {
			m.log.Warn("dropping corrupt block", zap.Error(err), zap.Binary("data", data))
			data = data[protocol.SkipToSync(data):]
			continue
		}
		if n == 0 {
			break
		}
		data = data[n:]
		if f.IsAck() {
			select {
			case m.acks <- f.Seq:
			default:
				m.log.Warn("ack backlog full", zap.Uint8("seq", f.Seq))
			}
			continue
		}
		m.handlePayload(f.Payload)
	}
	return append([]byte(nil), data...)
}

func (m *MCU) handlePayload(payload []byte) {
	for len(payload) > 0 {
		msg, err := protocol.DecodeMessage(&payload)
		if err != nil {
			m.log.Warn("undecodable response", zap.Error(err))
			return
		}
		st, ok := msg.(*protocol.RampStatus)
		if !ok {
			m.log.Warn("unexpected message from firmware", zap.Uint16("cmd", msg.CommandID()))
			continue
		}
		m.log.Debug("ramp_status",
			zap.Uint8("oid", st.OID),
			zap.Uint32("step", st.Step),
			zap.Uint32("target", st.Target),
			zap.Uint32("delay", st.Delay),
			zap.Uint8("flags", st.Flags))
		select {
		case m.status <- st:
		default:
			m.log.Warn("status backlog full, dropping", zap.Uint8("oid", st.OID))
		}
	}
}

// Send frames msgs into one block and waits until the firmware
// acknowledges it, resending on timeout.
func (m *MCU) Send(ctx context.Context, msgs ...protocol.Message) error {
	var payload []byte
	for _, msg := range msgs {
		payload = protocol.AppendMessage(payload, msg)
	}

	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	frame, err := protocol.AppendFrame(nil, m.seq, payload)
	if err != nil {
		return err
	}
	want := protocol.NextSeq(m.seq)

	// Acks left over from earlier resends refer to blocks already done.
	for drained := false; !drained; {
		select {
		case <-m.acks:
		default:
			drained = true
		}
	}

	timer := time.NewTimer(m.Retransmit)
	defer timer.Stop()
	for attempt := 0; attempt <= m.Retries; attempt++ {
		if attempt > 0 {
			m.log.Debug("resending block", zap.Uint8("seq", m.seq), zap.Int("attempt", attempt))
		}
		if _, err := m.rw.Write(frame); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		timer.Reset(m.Retransmit)
	wait:
		for {
			select {
			case seq := <-m.acks:
				if seq == want {
					m.seq = want
					return nil
				}
				// A nak names the block the firmware expects.
				m.log.Debug("nak", zap.Uint8("got", seq), zap.Uint8("want", want))
			case <-timer.C:
				break wait
			case <-m.done:
				return ErrClosed
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrNoAck, m.Retries+1)
}

// Statuses delivers every ramp_status the firmware sends.
func (m *MCU) Statuses() <-chan *protocol.RampStatus { return m.status }

// WaitStatus returns the next status for oid that satisfies match.
// Statuses for other steppers are discarded.
func (m *MCU) WaitStatus(ctx context.Context, oid uint8, match func(*protocol.RampStatus) bool) (*protocol.RampStatus, error) {
	for {
		select {
		case st := <-m.status:
			if st.OID == oid && (match == nil || match(st)) {
				return st, nil
			}
		case <-m.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Configure declares a ramp stepper on the firmware.
func (m *MCU) Configure(ctx context.Context, cfg protocol.ConfigRamp) error {
	return m.Send(ctx, &cfg)
}

// Move starts a move.
func (m *MCU) Move(ctx context.Context, move protocol.RampMove) error {
	return m.Send(ctx, &move)
}

// SetTarget moves the end of the running move.
func (m *MCU) SetTarget(ctx context.Context, oid uint8, steps uint32) error {
	return m.Send(ctx, &protocol.RampSetTarget{OID: oid, Steps: steps})
}

// SetSpeed changes the cruise speed of the running move.
func (m *MCU) SetSpeed(ctx context.Context, oid uint8, rpm uint32) error {
	return m.Send(ctx, &protocol.RampSetSpeed{OID: oid, RPM: rpm})
}

// SoftStop ramps the running move down to rest.
func (m *MCU) SoftStop(ctx context.Context, oid uint8) error {
	return m.Send(ctx, &protocol.RampSoftStop{OID: oid})
}

// Query asks for the state of oid and waits for the answer.
func (m *MCU) Query(ctx context.Context, oid uint8) (*protocol.RampStatus, error) {
	if err := m.Send(ctx, &protocol.RampQuery{OID: oid}); err != nil {
		return nil, err
	}
	return m.WaitStatus(ctx, oid, nil)
}

// WaitDone waits for the report the firmware sends when a move ends.
func (m *MCU) WaitDone(ctx context.Context, oid uint8) (*protocol.RampStatus, error) {
	return m.WaitStatus(ctx, oid, func(st *protocol.RampStatus) bool {
		return st.Flags&protocol.FlagActive == 0 && st.Flags&protocol.FlagDone != 0
	})
}
