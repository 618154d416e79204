package alert

import (
	"fmt"
	"io"
	"os"

	"github.com/dfgiraldo/movalert/internal/news"
)

// ConsoleChannel prints alerts to standard output.
type ConsoleChannel struct {
	out io.Writer
}

// NewConsoleChannel creates a console channel writing to stdout.
func NewConsoleChannel() *ConsoleChannel {
	return &ConsoleChannel{out: os.Stdout}
}

func (c *ConsoleChannel) Name() string { return "console" }

func (c *ConsoleChannel) Send(item news.Item) error {
	_, err := fmt.Fprintf(c.out, "\n🚨 ALERT\n%s\n\n", FormatMessage(item))
	return err
}
