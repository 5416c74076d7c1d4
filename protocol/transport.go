package protocol

// CommandHandler runs one decoded command. It consumes its arguments from
// data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware end of the link: it validates incoming blocks,
// dispatches their commands, acknowledges them and frames responses.
// It is driven from the main loop, never from interrupt context.
type Transport struct {
	synchronized bool
	nextSeq      uint8

	write   func([]byte)
	handler CommandHandler

	resetCallback func()
	lastErr       error

	txBuf [MessageLengthMax]byte
}

// NewTransport returns a transport that sends through write and hands
// commands to handler.
func NewTransport(write func([]byte), handler CommandHandler) *Transport {
	return &Transport{
		synchronized: true,
		nextSeq:      MessageDest,
		write:        write,
		handler:      handler,
	}
}

// Receive consumes as many complete blocks from data as it can and returns
// the number of bytes used. Unused bytes must be presented again together
// with the next input.
func (t *Transport) Receive(data []byte) int {
	used := 0
	for used < len(data) {
		rest := data[used:]
		if !t.synchronized {
			n := SkipToSync(rest)
			used += n
			if rest[n-1] == MessageValueSync {
				t.synchronized = true
				t.sendAck()
			}
			continue
		}
		if rest[0] == MessageValueSync {
			used++
			continue
		}

		frame, n, err := ParseFrame(rest)
		if err != nil {
			t.synchronized = false
			continue
		}
		if n == 0 {
			break
		}
		used += n

		// A host that restarts its sequence has reset.
		if frame.Seq == MessageDest && t.nextSeq != MessageDest {
			t.nextSeq = MessageDest
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}
		if frame.Seq == t.nextSeq {
			t.nextSeq = NextSeq(frame.Seq)
			t.lastErr = t.dispatch(frame.Payload)
		}
		// Out of order blocks get the same ack, which acts as a nak.
		t.sendAck()
	}
	return used
}

func (t *Transport) dispatch(payload []byte) error {
	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(id), &payload); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) sendAck() {
	t.write(AppendAck(t.txBuf[:0], t.nextSeq))
}

// SendCommand frames one message with the current sequence and writes it.
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	out := NewScratchOutput()
	EncodeVLQUint(out, uint32(cmdID))
	if args != nil {
		args(out)
	}
	if out.Overflow() {
		return ErrFrameTooLong
	}
	frame, err := AppendFrame(t.txBuf[:0], t.nextSeq, out.Result())
	if err != nil {
		return err
	}
	t.write(frame)
	return nil
}

// LastError is the error returned by the most recent command handler.
func (t *Transport) LastError() error { return t.lastErr }

// Synchronized reports whether the transport is in step with the byte
// stream.
func (t *Transport) Synchronized() bool { return t.synchronized }

// Reset returns the transport to its power-on state.
func (t *Transport) Reset() {
	t.synchronized = true
	t.nextSeq = MessageDest
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback sets a function to run when the host resets the link.
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}
