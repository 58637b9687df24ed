package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// CSVWriter exports records as rows of
// (timestamp, source_x, source_y, target_x, target_y, payload).
type CSVWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer

	records    []Record
	bufferSize int
}

// NewCSVWriter creates a writer for path + ".csv". An empty path generates a
// unique file name.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// FileName returns the file the writer writes into.
func (w *CSVWriter) FileName() string {
	return w.path + ".csv"
}

// Init creates the file and writes the header. It panics if the file already
// exists. The file is flushed and closed at exit.
func (w *CSVWriter) Init() {
	if w.path == "" {
		w.path = "meshflood_history_" + xid.New().String()
	}

	filename := w.FileName()

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	w.file = file
	w.writer = csv.NewWriter(file)

	err = w.writer.Write([]string{
		"timestamp", "source_x", "source_y", "target_x", "target_y", "payload",
	})
	if err != nil {
		panic(err)
	}

	atexit.Register(func() { w.Close() })
}

// Write buffers a record.
func (w *CSVWriter) Write(rec Record) {
	w.records = append(w.records, rec)
	if len(w.records) >= w.bufferSize {
		w.Flush()
	}
}

// WriteAll buffers all records and flushes them.
func (w *CSVWriter) WriteAll(records []Record) {
	for _, r := range records {
		w.Write(r)
	}

	w.Flush()
}

// Flush writes the buffered records to the file.
func (w *CSVWriter) Flush() {
	if w.file == nil {
		return
	}

	for _, r := range w.records {
		err := w.writer.Write([]string{
			strconv.FormatFloat(unixSeconds(r.Timestamp), 'f', 6, 64),
			formatCoordinate(r.SourcePosition.X),
			formatCoordinate(r.SourcePosition.Y),
			formatCoordinate(r.TargetPosition.X),
			formatCoordinate(r.TargetPosition.Y),
			string(r.Payload),
		})
		if err != nil {
			panic(err)
		}
	}

	w.records = nil

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		panic(err)
	}
}

// Close flushes and closes the file. Closing twice is a no-op.
func (w *CSVWriter) Close() {
	if w.file == nil {
		return
	}

	w.Flush()

	err := w.file.Close()
	if err != nil {
		panic(err)
	}

	w.file = nil
	w.writer = nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
