package famitracker

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/QEStudios/famivid/famitracker"
)

// Rows are much longer than the scanner's default line limit allows once a
// module uses several expansion chips.
const maxLineLength = 1 << 20

// Small struct for non-fatal warnings
type ParseWarning struct {
	Line    int
	Message string
}

func (pw ParseWarning) String() string {
	return fmt.Sprintf("line %d: %s", pw.Line, pw.Message)
}

// Parser reads pattern rows out of a FamiTracker text export, one at a time.
// Everything that isn't a row (the module header, instruments, TRACK, ORDER and
// PATTERN lines) is skipped.
type Parser struct {
	scanner    *bufio.Scanner
	logger     *log.Logger
	lineNumber int
	rows       int
	done       bool

	// Collect any warnings whilst parsing.
	warnings []ParseWarning
}

// NewParser creates a new parser reading from r.
func NewParser(r io.Reader, logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	return &Parser{
		scanner: scanner,
		logger:  logger,
	}
}

func (p *Parser) addWarning(format string, args ...any) {
	p.warnings = append(p.warnings, ParseWarning{
		Line:    p.lineNumber,
		Message: fmt.Sprintf(format, args...),
	})
}

func (p *Parser) fatalf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.lineNumber, fmt.Sprintf(format, args...))
}

// Next returns the next row of the document. ok is false once the document is
// exhausted.
func (p *Parser) Next() (row famitracker.Row, ok bool, err error) {
	if p.done {
		return famitracker.Row{}, false, nil
	}
	for p.scanner.Scan() {
		p.lineNumber++
		line := p.scanner.Text()

		if !famitracker.IsRowLine(line) {
			if strings.HasPrefix(strings.TrimSpace(line), "ROW") {
				p.addWarning("indented or malformed row marker, skipping: %s", strings.TrimSpace(line))
			}
			continue
		}

		row, err := famitracker.ParseRow(line)
		if err != nil {
			return famitracker.Row{}, false, p.fatalf("%v", err)
		}
		row.Line = p.lineNumber
		p.rows++
		return row, true, nil
	}

	p.done = true
	if err := p.scanner.Err(); err != nil {
		return famitracker.Row{}, false, p.fatalf("error while reading file: %v", err)
	}
	p.logger.Printf("Read %d music rows (%d lines)", p.rows, p.lineNumber)
	if len(p.warnings) > 0 {
		p.logger.Println("Warnings produced while parsing file:")
		for _, warning := range p.warnings {
			p.logger.Println(warning)
		}
	}
	return famitracker.Row{}, false, nil
}

// Rows returns the number of rows read so far.
func (p *Parser) Rows() int {
	return p.rows
}

// Warnings returns the non-fatal problems found so far.
func (p *Parser) Warnings() []ParseWarning {
	return p.warnings
}
