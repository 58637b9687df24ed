package history

import (
	"context"
	"sort"
	"sync"

	"github.com/sarchlab/meshflood/datarecording"
)

// TableName is the table receipts are persisted into.
const TableName = "receipts"

// A Log is an append-only list of records. Appends are safe from any number
// of goroutines. Queries may run at any time, but they only describe a
// complete run once every producer has stopped.
type Log struct {
	lock     sync.RWMutex
	records  []Record
	recorder datarecording.DataRecorder
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// AttachRecorder persists every record appended from now on into the
// receipts table of the data recorder.
func (l *Log) AttachRecorder(r datarecording.DataRecorder) {
	l.lock.Lock()
	defer l.lock.Unlock()

	r.CreateTable(TableName, receiptRow{})
	l.recorder = r
}

// Append adds a record.
func (l *Log) Append(rec Record) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.records = append(l.records, rec)

	if l.recorder != nil {
		l.recorder.InsertData(TableName, toRow(rec))
	}
}

// Flush writes the records buffered by the attached data recorder.
func (l *Log) Flush() {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.recorder != nil {
		l.recorder.Flush()
	}
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return len(l.records)
}

// Records returns a copy of all records in append order.
func (l *Log) Records() []Record {
	l.lock.RLock()
	defer l.lock.RUnlock()

	records := make([]Record, len(l.records))
	copy(records, l.records)

	return records
}

func (l *Log) filter(keep func(r Record) bool) []Record {
	l.lock.RLock()
	defer l.lock.RUnlock()

	var records []Record

	for _, r := range l.records {
		if keep(r) {
			records = append(records, r)
		}
	}

	return records
}

// ByReporter returns the records of one node in arrival order.
func (l *Log) ByReporter(reporter int) []Record {
	return l.filter(func(r Record) bool {
		return r.Reporter == reporter
	})
}

// Frontier returns, for the packet (src, seq), the accepted records in time
// order. Each node accepts a packet at most once, so this is the order in
// which the flood reached the nodes.
func (l *Log) Frontier(src int, seq uint32) []Record {
	records := l.filter(func(r Record) bool {
		return r.Accepted && r.Src == src && r.Seq == seq
	})

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records
}

// ReceivedCount returns the number of records per reporter.
func (l *Log) ReceivedCount() map[int]int {
	l.lock.RLock()
	defer l.lock.RUnlock()

	count := make(map[int]int)
	for _, r := range l.records {
		count[r.Reporter]++
	}

	return count
}

// Lines returns one hop per record. With onlyAccepted, dropped copies are
// left out, leaving the first-time deliveries.
func (l *Log) Lines(onlyAccepted bool) []Line {
	l.lock.RLock()
	defer l.lock.RUnlock()

	lines := make([]Line, 0, len(l.records))

	for _, r := range l.records {
		if onlyAccepted && !r.Accepted {
			continue
		}

		lines = append(lines, Line{
			From:     r.SourcePosition,
			To:       r.TargetPosition,
			Accepted: r.Accepted,
		})
	}

	return lines
}

// Load reads back the records persisted in a database.
func Load(ctx context.Context, reader datarecording.DataReader) ([]Record, error) {
	reader.MapTable(TableName, receiptRow{})

	rows, _, err := reader.Query(ctx, TableName, datarecording.QueryParams{
		OrderBy: "Timestamp",
	})
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, fromRow(*row.(*receiptRow)))
	}

	return records, nil
}
