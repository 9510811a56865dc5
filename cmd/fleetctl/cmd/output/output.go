// Package output печатает результаты команд: текстом (в цвете, если stdout - терминал), JSON или YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Printer пишет в out в выбранном формате.
type Printer struct {
	out    io.Writer
	format string
}

// New создает Printer поверх out. Цвет отключается, если out не терминал.
func New(out io.Writer, format string) (*Printer, error) {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("неизвестный формат вывода %q: ожидается text, json или yaml", format)
	}
	if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		color.NoColor = true
	}
	return &Printer{out: out, format: format}, nil
}

// NewWriter создает Printer без цвета поверх произвольного io.Writer.
func NewWriter(out io.Writer, format string) *Printer {
	color.NoColor = true
	return &Printer{out: out, format: format}
}

func (p *Printer) Structured() bool {
	return p.format != FormatText
}

// Value печатает v в JSON/YAML; в текстовом режиме вызывает text.
func (p *Printer) Value(v any, text func(w io.Writer)) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		// yaml.v3 не знает json-тегов: приводим через JSON к map/slice
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	}
	text(p.out)
	return nil
}

func (p *Printer) Success(format string, args ...any) {
	if p.Structured() {
		return
	}
	fmt.Fprintln(p.out, color.GreenString("✓ ")+fmt.Sprintf(format, args...))
}

func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.YellowString("⚠ ")+fmt.Sprintf(format, args...))
}

// Status раскрашивает статус записи или синхронизации.
func Status(s string) string {
	switch s {
	case "APPROVED", "synced", "online":
		return color.GreenString(s)
	case "REJECTED", "failing", "unreachable":
		return color.RedString(s)
	case "PENDING", "pending", "dirty", "offline":
		return color.YellowString(s)
	}
	return s
}
