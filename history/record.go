// Package history keeps the receipt decisions of every node, the audit trail
// from which the propagation of each flooded packet is reconstructed.
package history

import (
	"time"

	"github.com/sarchlab/meshflood/space"
)

// A Record is one envelope heard by one node, accepted or dropped.
type Record struct {
	EnvelopeID string

	// Reporter is the address of the node that heard the envelope.
	Reporter int

	Src int
	Dst int
	Seq uint32

	// TTL is the value after the reporter decremented it.
	TTL int

	SourcePosition space.Position
	TargetPosition space.Position
	Timestamp      time.Time
	Accepted       bool
	Payload        []byte
}

// A Line is a transmission hop drawn from the transmitter to the receiver.
type Line struct {
	From, To space.Position
	Accepted bool
}

// receiptRow is the flat form of a Record stored by a data recorder.
type receiptRow struct {
	EnvelopeID string
	Reporter   int
	Src        int
	Dst        int
	Seq        int64
	TTL        int
	SourceX    float64
	SourceY    float64
	TargetX    float64
	TargetY    float64
	Timestamp  int64
	Accepted   bool
	Payload    string
}

func toRow(r Record) receiptRow {
	return receiptRow{
		EnvelopeID: r.EnvelopeID,
		Reporter:   r.Reporter,
		Src:        r.Src,
		Dst:        r.Dst,
		Seq:        int64(r.Seq),
		TTL:        r.TTL,
		SourceX:    r.SourcePosition.X,
		SourceY:    r.SourcePosition.Y,
		TargetX:    r.TargetPosition.X,
		TargetY:    r.TargetPosition.Y,
		Timestamp:  r.Timestamp.UnixNano(),
		Accepted:   r.Accepted,
		Payload:    string(r.Payload),
	}
}

func fromRow(row receiptRow) Record {
	return Record{
		EnvelopeID:     row.EnvelopeID,
		Reporter:       row.Reporter,
		Src:            row.Src,
		Dst:            row.Dst,
		Seq:            uint32(row.Seq),
		TTL:            row.TTL,
		SourcePosition: space.At(row.SourceX, row.SourceY),
		TargetPosition: space.At(row.TargetX, row.TargetY),
		Timestamp:      time.Unix(0, row.Timestamp),
		Accepted:       row.Accepted,
		Payload:        []byte(row.Payload),
	}
}
