package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardrive/apmapper/internal/models"
)

// pcapng block types and framing constants.
const (
	blockTypeSectionHeader  = 0x0A0D0D0A
	blockTypeInterfaceDesc  = 0x00000001
	blockTypeSimplePacket   = 0x00000003
	blockTypeNameResolution = 0x00000004
	blockTypeInterfaceStats = 0x00000005
	blockTypeEnhancedPacket = 0x00000006

	byteOrderMagic = 0x1A2B3C4D

	optionEndOfOpts = 0
	optionTSResol   = 9

	// LINKTYPE_IEEE802_11_RADIOTAP
	linkTypeRadiotap = 127

	// Upper bound on a sane block length. Anything larger means the length
	// field itself is corrupted and the block boundary is lost.
	maxBlockLength = 1 << 26
)

// ErrNotCapture is returned when the leading section header block cannot be
// recognized, i.e. the input is not a pcapng stream at all.
var ErrNotCapture = errors.New("capture: input is not a pcapng stream")

// Stats counts what the reader saw while walking one capture file.
type Stats struct {
	Blocks        int
	Packets       int
	Observations  int
	SkippedBlocks int
	SkippedFrames int
	WrongLinkType int
	TruncatedTail bool
}

type captureInterface struct {
	linkType    uint16
	unitsPerSec uint64
}

// Reader walks the block structure of a pcapng capture and yields one
// RawObservation per decodable beacon or probe-response frame. The sequence
// is lazy, finite and non-restartable.
type Reader struct {
	r      *bufio.Reader
	order  binary.ByteOrder
	ifaces []captureInterface
	logger zerolog.Logger
	stats  Stats
	done   bool
}

// NewReader validates the leading section header block and returns a Reader
// positioned at the first content block. A stream that does not start with a
// recognizable section header fails with ErrNotCapture.
func NewReader(r io.Reader, logger zerolog.Logger) (*Reader, error) {
	br := bufio.NewReaderSize(r, 1<<16)

	head := make([]byte, 12)
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCapture, err)
	}
	if binary.BigEndian.Uint32(head[0:4]) != blockTypeSectionHeader {
		return nil, ErrNotCapture
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(head[8:12]) == byteOrderMagic:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(head[8:12]) == byteOrderMagic:
		order = binary.BigEndian
	default:
		return nil, ErrNotCapture
	}

	totalLen := order.Uint32(head[4:8])
	if totalLen < 28 || totalLen%4 != 0 || totalLen > maxBlockLength {
		return nil, ErrNotCapture
	}
	// Remainder of the section header: version, section length, options and
	// the trailing length. Nothing in it is needed.
	if _, err := io.CopyN(io.Discard, br, int64(totalLen-12)); err != nil {
		return nil, fmt.Errorf("%w: truncated section header", ErrNotCapture)
	}

	cr := &Reader{r: br, order: order, logger: logger}
	cr.stats.Blocks++
	return cr, nil
}

// Next returns the next observation, or io.EOF when the stream is exhausted.
// Malformed blocks are skipped with a warning; a truncated trailing block
// ends the sequence without error so partial results survive.
func (cr *Reader) Next() (*models.RawObservation, error) {
	if cr.done {
		return nil, io.EOF
	}
	for {
		obs, err := cr.nextBlock()
		if err != nil {
			cr.done = true
			return nil, err
		}
		if obs != nil {
			cr.stats.Observations++
			return obs, nil
		}
	}
}

// ReadAll drains the reader. Only the reader's own fatal conditions (none
// after construction) terminate early, so the result holds everything that
// could be decoded.
func (cr *Reader) ReadAll() ([]models.RawObservation, error) {
	var out []models.RawObservation
	for {
		obs, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, *obs)
	}
}

// Stats reports counters accumulated so far. Meaningful once the sequence is
// exhausted.
func (cr *Reader) Stats() Stats { return cr.stats }

func (cr *Reader) nextBlock() (*models.RawObservation, error) {
	head := make([]byte, 8)
	if _, err := io.ReadFull(cr.r, head); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			cr.logger.Warn().Msg("truncated block header at end of capture")
			cr.stats.TruncatedTail = true
		}
		return nil, io.EOF
	}

	blockType := cr.order.Uint32(head[0:4])
	totalLen := cr.order.Uint32(head[4:8])
	if totalLen < 12 || totalLen%4 != 0 || totalLen > maxBlockLength {
		// The length field is garbage, so the next block boundary is
		// unknowable. Stop here and keep what was decoded.
		cr.logger.Warn().
			Uint32("block_type", blockType).
			Uint32("length", totalLen).
			Msg("corrupted block length, stopping capture walk")
		cr.stats.TruncatedTail = true
		return nil, io.EOF
	}

	body := make([]byte, totalLen-12)
	if _, err := io.ReadFull(cr.r, body); err != nil {
		cr.logger.Warn().Uint32("block_type", blockType).Msg("truncated block body at end of capture")
		cr.stats.TruncatedTail = true
		return nil, io.EOF
	}
	trailer := make([]byte, 4)
	if _, err := io.ReadFull(cr.r, trailer); err != nil {
		cr.logger.Warn().Uint32("block_type", blockType).Msg("truncated block trailer at end of capture")
		cr.stats.TruncatedTail = true
		return nil, io.EOF
	}
	if cr.order.Uint32(trailer) != totalLen {
		cr.logger.Warn().
			Uint32("block_type", blockType).
			Msg("block trailer length mismatch, continuing at next boundary")
		cr.stats.SkippedBlocks++
		cr.stats.Blocks++
		return nil, nil
	}
	cr.stats.Blocks++

	switch blockType {
	case blockTypeSectionHeader:
		return nil, cr.restartSection(body)
	case blockTypeInterfaceDesc:
		cr.parseInterface(body)
		return nil, nil
	case blockTypeEnhancedPacket:
		return cr.parsePacket(body), nil
	case blockTypeNameResolution, blockTypeInterfaceStats, blockTypeSimplePacket:
		// Valid but carries nothing of interest.
		return nil, nil
	default:
		cr.logger.Warn().Uint32("block_type", blockType).Msg("unknown block type, skipping")
		cr.stats.SkippedBlocks++
		return nil, nil
	}
}

// restartSection handles a second section header appearing mid-stream. The
// interface table is per-section and resets. A section with flipped byte
// order cannot be walked with the length already consumed, so it ends the
// sequence instead.
func (cr *Reader) restartSection(body []byte) error {
	if len(body) < 4 {
		cr.logger.Warn().Msg("short section header block, stopping")
		return io.EOF
	}
	if cr.order.Uint32(body[0:4]) != byteOrderMagic {
		cr.logger.Warn().Msg("section header with different byte order, stopping")
		return io.EOF
	}
	cr.ifaces = cr.ifaces[:0]
	return nil
}

func (cr *Reader) parseInterface(body []byte) {
	if len(body) < 8 {
		cr.logger.Warn().Msg("short interface description block, skipping")
		cr.stats.SkippedBlocks++
		return
	}
	iface := captureInterface{
		linkType:    cr.order.Uint16(body[0:2]),
		unitsPerSec: tsResolution(body[8:], cr.order),
	}
	cr.ifaces = append(cr.ifaces, iface)
	if iface.linkType != linkTypeRadiotap {
		cr.logger.Debug().
			Int("interface", len(cr.ifaces)-1).
			Uint16("link_type", iface.linkType).
			Msg("interface does not carry radiotap frames")
	}
}

func (cr *Reader) parsePacket(body []byte) *models.RawObservation {
	if len(body) < 20 {
		cr.logger.Warn().Msg("short enhanced packet block, skipping")
		cr.stats.SkippedBlocks++
		return nil
	}
	ifaceID := cr.order.Uint32(body[0:4])
	if int(ifaceID) >= len(cr.ifaces) {
		cr.logger.Warn().Uint32("interface", ifaceID).Msg("packet references unknown interface, skipping")
		cr.stats.SkippedBlocks++
		return nil
	}
	iface := cr.ifaces[ifaceID]
	if iface.linkType != linkTypeRadiotap {
		cr.stats.WrongLinkType++
		return nil
	}

	capLen := cr.order.Uint32(body[12:16])
	if uint64(capLen) > uint64(len(body)-20) {
		cr.logger.Warn().Msg("enhanced packet block shorter than captured length, skipping")
		cr.stats.SkippedBlocks++
		return nil
	}
	cr.stats.Packets++

	ts := uint64(cr.order.Uint32(body[4:8]))<<32 | uint64(cr.order.Uint32(body[8:12]))
	when := timestampFromUnits(ts, iface.unitsPerSec)

	obs, ok := decodeObservation(body[20:20+capLen], when)
	if !ok {
		cr.stats.SkippedFrames++
		return nil
	}
	return obs
}

func timestampFromUnits(ts, unitsPerSec uint64) time.Time {
	if unitsPerSec == 0 {
		unitsPerSec = 1_000_000
	}
	sec := ts / unitsPerSec
	frac := ts % unitsPerSec
	nanos := frac * uint64(time.Second) / unitsPerSec
	return time.Unix(int64(sec), int64(nanos)).UTC()
}

// tsResolution extracts the if_tsresol option from an interface description
// block's option list. The default resolution is microseconds.
func tsResolution(opts []byte, order binary.ByteOrder) uint64 {
	units := uint64(1_000_000)
	for len(opts) >= 4 {
		code := order.Uint16(opts[0:2])
		optLen := int(order.Uint16(opts[2:4]))
		opts = opts[4:]
		if code == optionEndOfOpts {
			break
		}
		if optLen > len(opts) {
			break
		}
		if code == optionTSResol && optLen >= 1 {
			v := opts[0]
			if v&0x80 != 0 {
				shift := v & 0x7f
				if shift <= 30 {
					units = 1 << shift
				}
			} else if v <= 9 {
				units = 1
				for i := byte(0); i < v; i++ {
					units *= 10
				}
			}
		}
		padded := (optLen + 3) &^ 3
		if padded > len(opts) {
			break
		}
		opts = opts[padded:]
	}
	return units
}
