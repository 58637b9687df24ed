package history

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CSVWriter", func() {
	var (
		path   string
		writer *CSVWriter
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "history")
		writer = NewCSVWriter(path)
		writer.Init()
	})

	It("should write a header and one row per record", func() {
		r := rec(1, 0, 1, 0, true)
		r.Payload = []byte("a,b")

		writer.WriteAll([]Record{r, rec(2, 1, 1, 0, false)})
		writer.Close()

		content, err := os.ReadFile(path + ".csv")
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(Equal(
			"timestamp,source_x,source_y,target_x,target_y,payload"))
		Expect(lines[1]).To(Equal(`1700000000.000000,0,0,1,0,"a,b"`))
		Expect(lines[2]).To(Equal(`1700000000.000000,1,0,2,0,p`))
	})

	It("should keep payloads with quotes and commas readable", func() {
		r := rec(1, 0, 1, 0, true)
		r.Payload = []byte(`say "hi", bob`)

		writer.WriteAll([]Record{r})
		writer.Close()

		file, err := os.Open(path + ".csv")
		Expect(err).NotTo(HaveOccurred())
		defer file.Close()

		rows, err := csv.NewReader(file).ReadAll()

		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[1]).To(Equal([]string{
			"1700000000.000000", "0", "0", "1", "0", `say "hi", bob`,
		}))
	})

	It("should refuse to overwrite a file", func() {
		again := NewCSVWriter(path)
		Expect(again.Init).To(Panic())
	})

	It("should tolerate closing twice", func() {
		writer.Close()
		Expect(writer.Close).NotTo(Panic())
	})
})
