package wasp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/waspflash/internal/logging"
	"github.com/muurk/waspflash/internal/protocol"
	"github.com/muurk/waspflash/internal/transport"
)

// Stage1State is a state of the register upload.
type Stage1State int

const (
	Stage1Idle Stage1State = iota
	Stage1DeviceReady
	Stage1HeaderWritten
	Stage1ChecksumWritten
	Stage1Transferring
	Stage1AwaitStart1
	Stage1AwaitStart2
	Stage1MacSent
	Stage1Done
	Stage1Failed
)

func (s Stage1State) String() string {
	switch s {
	case Stage1Idle:
		return "Idle"
	case Stage1DeviceReady:
		return "DeviceReady"
	case Stage1HeaderWritten:
		return "HeaderWritten"
	case Stage1ChecksumWritten:
		return "ChecksumWritten"
	case Stage1Transferring:
		return "Transferring"
	case Stage1AwaitStart1:
		return "AwaitStart1"
	case Stage1AwaitStart2:
		return "AwaitStart2"
	case Stage1MacSent:
		return "MacSent"
	case Stage1Done:
		return "Done"
	case Stage1Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Stage1State(%d)", int(s))
	}
}

// Stage1Result summarizes a successful register upload.
type Stage1Result struct {
	Header   protocol.Header
	Checksum uint32
	Chunks   int
	MAC      net.HardwareAddr
	Duration time.Duration
}

// Stage1 uploads the first-stage image through the WASP register window.
//
// The sequence is: verify the device is idle, negotiate the load header and
// checksum, stream the image 14 bytes at a time, run the start handshake,
// then assign the coprocessor its MAC address. Any rejected response is
// fatal; after a failure nothing more is written.
type Stage1 struct {
	link  transport.RegisterLink
	cfg   Config
	log   *zap.Logger
	state Stage1State
	start time.Time
}

// NewStage1 creates a stage-1 engine on link. The link is borrowed; the
// caller closes it.
func NewStage1(link transport.RegisterLink, opts ...Option) *Stage1 {
	if link == nil {
		panic("register link cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Stage1{
		link: link,
		cfg:  cfg,
		log:  cfg.Logger.With(zap.String("stage", StageOne)),
	}
}

// State returns the current protocol state.
func (s *Stage1) State() Stage1State {
	return s.state
}

// Upload runs the complete stage-1 sequence for img.
func (s *Stage1) Upload(ctx context.Context, img *Image) (*Stage1Result, error) {
	s.start = time.Now()
	s.state = Stage1Idle

	res, err := s.upload(ctx, img)
	if err != nil {
		s.log.Error("stage-1 upload failed", zap.Stringer("state", s.state), zap.Error(err))
		s.state = Stage1Failed
	}
	s.cfg.Metrics.UploadFinished(StageOne, time.Since(s.start), err)
	return res, err
}

func (s *Stage1) upload(ctx context.Context, img *Image) (*Stage1Result, error) {
	if img == nil || img.Size() == 0 {
		return nil, &InputError{Reason: "image is empty"}
	}
	if img.Size() > protocol.MaxStage1ImageSize {
		return nil, &InputError{
			Path:   img.label(),
			Reason: fmt.Sprintf("file too big: %d bytes (max %d)", img.Size(), protocol.MaxStage1ImageSize),
		}
	}

	p := s.cfg.Stage1

	checksumFn := s.cfg.Checksum
	if checksumFn == nil {
		fn, err := p.ChecksumFunc()
		if err != nil {
			return nil, err
		}
		checksumFn = fn
	}

	mac := s.cfg.MAC
	if mac == nil {
		m, err := p.HardwareAddr()
		if err != nil {
			return nil, err
		}
		mac = m
	}
	macFrame, err := protocol.BuildMacFrame(mac, p.MacTail)
	if err != nil {
		return nil, err
	}

	res := &Stage1Result{
		Header: protocol.Header{
			StartAddr: p.LoadAddr,
			Length:    uint32(img.Size()),
			ExecAddr:  p.ExecAddr,
		},
		Checksum: checksumFn(img.Bytes()),
		MAC:      mac,
	}

	s.log.Info("starting stage-1 upload",
		zap.String("image", img.Name),
		zap.Int("size", img.Size()),
		logging.Addr("checksum", res.Checksum),
	)

	if err := s.checkReady(); err != nil {
		return nil, err
	}
	if err := s.writeHeader(ctx, res.Header); err != nil {
		return nil, err
	}
	if err := s.writeChecksum(ctx, res.Checksum); err != nil {
		return nil, err
	}

	chunks, err := s.transfer(ctx, img.Bytes())
	if err != nil {
		return nil, err
	}
	res.Chunks = chunks

	if err := s.startFirmware(ctx); err != nil {
		return nil, err
	}
	if err := s.sendMAC(ctx, macFrame); err != nil {
		return nil, err
	}

	s.state = Stage1Done
	res.Duration = time.Since(s.start)
	s.progress(Progress{Phase: PhaseComplete, Chunk: chunks, TotalChunks: chunks, Percentage: 100, BytesSent: img.Size()})
	s.log.Info("stage-1 upload complete", zap.Int("chunks", chunks), zap.Duration("duration", res.Duration))
	return res, nil
}

// checkReady verifies STATUS and ZERO both read OK.
func (s *Stage1) checkReady() error {
	s.state = Stage1DeviceReady
	s.progress(Progress{Phase: PhaseHandshake})

	for _, reg := range []protocol.Register{protocol.RegStatus, protocol.RegZero} {
		v, err := s.read(reg)
		if err != nil {
			return err
		}
		if v != s.cfg.Stage1.Codes.OK {
			return s.reject(NotReady, reg, v, 0)
		}
	}
	return nil
}

func (s *Stage1) writeHeader(ctx context.Context, h protocol.Header) error {
	s.state = Stage1HeaderWritten
	s.progress(Progress{Phase: PhaseHeader})
	s.log.Debug("writing header", zap.Stringer("header", h))

	words := h.Words()
	if err := s.writeData(words[:]); err != nil {
		return err
	}
	if err := s.command(ctx, s.cfg.Stage1.Codes.SetParams); err != nil {
		return err
	}
	return s.expectOK(HeaderRejected)
}

func (s *Stage1) writeChecksum(ctx context.Context, checksum uint32) error {
	s.state = Stage1ChecksumWritten
	s.progress(Progress{Phase: PhaseChecksum})

	words := protocol.ChecksumWords(checksum)
	if err := s.writeData(words[:]); err != nil {
		return err
	}
	if err := s.command(ctx, s.cfg.Stage1.Codes.SetChecksum); err != nil {
		return err
	}
	return s.expectOK(ChecksumRejected)
}

// transfer streams the image in 14-byte frames.
func (s *Stage1) transfer(ctx context.Context, image []byte) (int, error) {
	s.state = Stage1Transferring

	frames := protocol.SplitRegisterFrames(image)
	total := len(frames)
	sent := 0

	for i, frame := range frames {
		if err := s.writeData(protocol.FrameForRegisters(frame)); err != nil {
			return i, err
		}
		if err := s.command(ctx, s.cfg.Stage1.Codes.SetData); err != nil {
			return i, err
		}
		if err := s.expectAccepted(i + 1); err != nil {
			return i, err
		}

		sent += len(frame)
		s.cfg.Metrics.ChunkSent(StageOne, DownloadFirmware.String(), len(frame))
		s.progress(Progress{
			Phase:       PhaseTransfer,
			Chunk:       i + 1,
			TotalChunks: total,
			Percentage:  percentage(i+1, total),
			BytesSent:   sent,
		})
	}

	s.log.Info("image transferred", zap.Int("chunks", total), zap.Int("bytes", sent))
	return total, nil
}

// startFirmware runs the start handshake: one START_FIRMWARE write per
// configured sentinel, each awaited in turn. Without sentinels the device
// is only waited on until it leaves WAIT.
func (s *Stage1) startFirmware(ctx context.Context) error {
	p := s.cfg.Stage1

	s.state = Stage1AwaitStart1
	s.progress(Progress{Phase: PhaseStart})

	if err := sleep(ctx, p.StartDelay); err != nil {
		return s.timeout(&TimeoutError{Err: err}, "start delay")
	}

	if len(p.StartSentinels) == 0 {
		return s.waitStatus(ctx, p.PollTimeout, "STATUS != WAIT", func(v uint16) bool {
			return v != p.Codes.Wait
		})
	}

	for i, sentinel := range p.StartSentinels {
		if i > 0 {
			s.state = Stage1AwaitStart2
		}
		if err := s.write(protocol.RegStatus, p.Codes.StartFirmware); err != nil {
			return err
		}
		s.log.Info("firmware start command sent", zap.Int("phase", i+1))

		if err := sleep(ctx, p.WriteSettle); err != nil {
			return s.timeout(&TimeoutError{Err: err}, "write settle")
		}

		want := sentinel
		waiting := "STATUS == " + protocol.RegisterResponseName(want)
		if err := s.waitStatus(ctx, p.PollTimeout, waiting, func(v uint16) bool {
			return v == want
		}); err != nil {
			return err
		}
	}
	return nil
}

// sendMAC writes the MAC assignment frame as one more data chunk. The
// device's answer is logged but not checked.
func (s *Stage1) sendMAC(ctx context.Context, frame []byte) error {
	s.state = Stage1MacSent
	s.progress(Progress{Phase: PhaseMAC})

	if err := s.writeData(protocol.FrameForRegisters(frame)); err != nil {
		return err
	}
	if err := s.command(ctx, s.cfg.Stage1.Codes.SetData); err != nil {
		return err
	}

	zero, err := s.read(protocol.RegZero)
	if err != nil {
		return err
	}
	status, err := s.read(protocol.RegStatus)
	if err != nil {
		return err
	}
	s.log.Info("mac address sent",
		zap.String("mac", net.HardwareAddr(frame[:6]).String()),
		zap.String("zero", protocol.RegisterResponseName(zero)),
		zap.String("status", protocol.RegisterResponseName(status)),
	)
	return nil
}

// command writes cmd to STATUS, lets the device settle, then waits until
// STATUS no longer reads back the command.
func (s *Stage1) command(ctx context.Context, cmd uint16) error {
	if err := s.write(protocol.RegStatus, cmd); err != nil {
		return err
	}
	if err := sleep(ctx, s.cfg.Stage1.WriteSettle); err != nil {
		return s.timeout(&TimeoutError{Err: err}, "write settle")
	}

	waiting := "STATUS != " + protocol.RegisterResponseName(cmd)
	return s.waitStatus(ctx, s.cfg.Stage1.HandshakeTimeout, waiting, func(v uint16) bool {
		return v != cmd
	})
}

// expectOK requires ZERO then STATUS to read OK.
func (s *Stage1) expectOK(kind ProtocolErrorKind) error {
	for _, reg := range []protocol.Register{protocol.RegZero, protocol.RegStatus} {
		v, err := s.read(reg)
		if err != nil {
			return err
		}
		if v != s.cfg.Stage1.Codes.OK {
			return s.reject(kind, reg, v, 0)
		}
	}
	return nil
}

// expectAccepted requires ZERO and STATUS to be OK, COMPLETED or WAIT.
func (s *Stage1) expectAccepted(chunk int) error {
	codes := s.cfg.Stage1.Codes
	for _, reg := range []protocol.Register{protocol.RegZero, protocol.RegStatus} {
		v, err := s.read(reg)
		if err != nil {
			return err
		}
		if v != codes.OK && v != codes.Completed && v != codes.Wait {
			return s.reject(ChunkRejected, reg, v, chunk)
		}
	}
	return nil
}

func (s *Stage1) waitStatus(ctx context.Context, timeout time.Duration, waiting string, done func(uint16) bool) error {
	err := Poll(ctx, s.cfg.Stage1.PollInterval, timeout, func() (bool, error) {
		v, err := s.read(protocol.RegStatus)
		if err != nil {
			return false, err
		}
		return done(v), nil
	})
	var te *TimeoutError
	if errors.As(err, &te) {
		return s.timeout(te, waiting)
	}
	return err
}

// writeData writes words to DATA1..DATAn.
func (s *Stage1) writeData(words []uint16) error {
	for i, w := range words {
		if err := s.write(protocol.DataRegisters[i], w); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stage1) read(reg protocol.Register) (uint16, error) {
	v, err := s.link.Read16(reg)
	s.cfg.Metrics.RegisterAccess("read")
	if err != nil {
		return 0, &TransportError{Stage: StageOne, State: s.state.String(), Op: "read " + reg.String(), Err: err}
	}
	if ce := s.log.Check(zap.DebugLevel, "register read"); ce != nil {
		ce.Write(zap.Stringer("reg", reg), logging.Word("value", v))
	}
	return v, nil
}

func (s *Stage1) write(reg protocol.Register, value uint16) error {
	if ce := s.log.Check(zap.DebugLevel, "register write"); ce != nil {
		ce.Write(zap.Stringer("reg", reg), logging.Word("value", value))
	}
	err := s.link.Write16(reg, value)
	s.cfg.Metrics.RegisterAccess("write")
	if err != nil {
		return &TransportError{Stage: StageOne, State: s.state.String(), Op: "write " + reg.String(), Err: err}
	}
	return nil
}

func (s *Stage1) reject(kind ProtocolErrorKind, reg protocol.Register, value uint16, chunk int) error {
	return &ProtocolError{
		Stage:    StageOne,
		State:    s.state.String(),
		Kind:     kind,
		Register: reg,
		Value:    value,
		Chunk:    chunk,
	}
}

func (s *Stage1) timeout(te *TimeoutError, waiting string) error {
	te.Stage = StageOne
	te.State = s.state.String()
	te.Waiting = waiting
	return te
}

func (s *Stage1) progress(p Progress) {
	p.Stage = StageOne
	p.ElapsedTime = time.Since(s.start)
	s.cfg.report(p)
}
