package main

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

// lineFormatter prints "<level initial> <message>", one entry per line.
// oz-daemon relays these lines and strips the two leading characters.
type lineFormatter struct{}

func (f *lineFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(strings.ToUpper(entry.Level.String()[:1]))
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// setupLogger sends errors to stderr and everything else to stdout.
func setupLogger(logger *log.Logger, stdout, stderr io.Writer) {
	logger.SetFormatter(&lineFormatter{})
	logger.SetOutput(io.Discard)
	logger.SetLevel(log.DebugLevel)
	logger.ReplaceHooks(make(log.LevelHooks))
	logger.AddHook(&writer.Hook{
		Writer:    stderr,
		LogLevels: []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel},
	})
	logger.AddHook(&writer.Hook{
		Writer:    stdout,
		LogLevels: []log.Level{log.WarnLevel, log.InfoLevel, log.DebugLevel},
	})
}
