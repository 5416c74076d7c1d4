package protocol

// OutputBuffer is where encoders write.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	// Update overwrites an already written byte.
	Update(pos int, val byte)
	// DataSince returns what was written from pos on.
	DataSince(pos int) []byte
}

// ScratchOutput is an OutputBuffer over a fixed array sized for one frame
// payload. Writes past the end are dropped and reported by Overflow.
type ScratchOutput struct {
	buf      [MessageLengthMax]byte
	pos      int
	overflow bool
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
	if n < len(data) {
		s.overflow = true
	}
}

func (s *ScratchOutput) CurPosition() int { return s.pos }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos >= 0 && pos < s.pos {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos < 0 || pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written so far.
func (s *ScratchOutput) Result() []byte { return s.buf[:s.pos] }

// Overflow reports whether any write was truncated.
func (s *ScratchOutput) Overflow() bool { return s.overflow }

func (s *ScratchOutput) Reset() {
	s.pos = 0
	s.overflow = false
}

// SliceOutput is a growable OutputBuffer for host-side encoding.
type SliceOutput struct {
	Buf []byte
}

func (s *SliceOutput) Output(data []byte) { s.Buf = append(s.Buf, data...) }

func (s *SliceOutput) CurPosition() int { return len(s.Buf) }

func (s *SliceOutput) Update(pos int, val byte) {
	if pos >= 0 && pos < len(s.Buf) {
		s.Buf[pos] = val
	}
}

func (s *SliceOutput) DataSince(pos int) []byte {
	if pos < 0 || pos > len(s.Buf) {
		return nil
	}
	return s.Buf[pos:]
}
