package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/thpani/fuzz-pb25/logging/colors"
)

// GlobalLogger describes a Logger that is disabled by default and is instantiated when the campaign is created. Each
// module/package should create its own sub-logger.
var GlobalLogger = NewLogger(zerolog.Disabled)

// Logger describes a custom logging object that can log events to any arbitrary channel in structured, unstructured,
// or unstructured-and-colorized form.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// context holds the key-value pairs attached through NewSubLogger, replayed onto every underlying logger.
	context map[string]string

	// structuredLogger emits JSON lines to structuredWriters.
	structuredLogger zerolog.Logger
	// unstructuredLogger emits plain console lines to unstructuredWriters.
	unstructuredLogger zerolog.Logger
	// unstructuredColorLogger emits colorized console lines to unstructuredColorWriters.
	unstructuredColorLogger zerolog.Logger

	structuredWriters        []io.Writer
	unstructuredWriters      []io.Writer
	unstructuredColorWriters []io.Writer
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// flusher is implemented by buffered writers (e.g. *bufio.Writer) which should be flushed periodically.
type flusher interface {
	Flush() error
}

// NewLogger will create a new Logger object with a specific log level. Writers are attached afterwards with AddWriter.
func NewLogger(level zerolog.Level) *Logger {
	l := &Logger{
		level:   level,
		context: make(map[string]string),
	}
	l.rebuild()
	return l
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that parsing of logs is "grep-able" based on some key
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	subContext := make(map[string]string, len(l.context)+1)
	for k, v := range l.context {
		subContext[k] = v
	}
	subContext[key] = value

	sub := &Logger{
		level:                    l.level,
		context:                  subContext,
		structuredWriters:        append([]io.Writer(nil), l.structuredWriters...),
		unstructuredWriters:      append([]io.Writer(nil), l.unstructuredWriters...),
		unstructuredColorWriters: append([]io.Writer(nil), l.unstructuredColorWriters...),
	}
	sub.rebuild()
	return sub
}

// AddWriter will add a writer to the list of channels where log output will be sent. Duplicate writers are ignored.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)
	for _, w := range *writers {
		if w == writer {
			return
		}
	}
	*writers = append(*writers, writer)
	l.rebuild()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist,
// this function is a no-op
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)
	for i, w := range *writers {
		if w == writer {
			*writers = append((*writers)[:i], (*writers)[i+1:]...)
			l.rebuild()
			return
		}
	}
}

// Flush flushes every attached writer which buffers its output. The first error encountered is returned, but all
// writers are attempted.
func (l *Logger) Flush() error {
	var firstErr error
	for _, writers := range [][]io.Writer{l.structuredWriters, l.unstructuredWriters, l.unstructuredColorWriters} {
		for _, w := range writers {
			if f, ok := w.(flusher); ok {
				if err := f.Flush(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

func (l *Logger) writersFor(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &l.structuredWriters
	}
	if colored {
		return &l.unstructuredColorWriters
	}
	return &l.unstructuredWriters
}

// rebuild recreates the underlying zerolog loggers after the writer lists, level, or context changed.
func (l *Logger) rebuild() {
	l.structuredLogger = zerolog.Nop()
	l.unstructuredLogger = zerolog.Nop()
	l.unstructuredColorLogger = zerolog.Nop()

	if len(l.structuredWriters) > 0 {
		l.structuredLogger = l.withContext(zerolog.New(zerolog.MultiLevelWriter(l.structuredWriters...)).With().Timestamp()).Level(l.level)
	}
	if len(l.unstructuredWriters) > 0 {
		writers := make([]io.Writer, 0, len(l.unstructuredWriters))
		for _, w := range l.unstructuredWriters {
			writers = append(writers, setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level))
		}
		l.unstructuredLogger = l.withContext(zerolog.New(zerolog.MultiLevelWriter(writers...)).With()).Level(l.level)
	}
	if len(l.unstructuredColorWriters) > 0 {
		writers := make([]io.Writer, 0, len(l.unstructuredColorWriters))
		for _, w := range l.unstructuredColorWriters {
			writers = append(writers, setupDefaultFormatting(zerolog.ConsoleWriter{Out: w}, l.level))
		}
		l.unstructuredColorLogger = l.withContext(zerolog.New(zerolog.MultiLevelWriter(writers...)).With()).Level(l.level)
	}
}

func (l *Logger) withContext(ctx zerolog.Context) zerolog.Logger {
	for k, v := range l.context {
		ctx = ctx.Str(k, v)
	}
	return ctx.Logger()
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, args...)
}

// Error is a wrapper function that will log an error event.
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// log builds the messages for every output flavor and sends off one event per flavor.
func (l *Logger) log(level zerolog.Level, args ...any) {
	colorMsg, plainMsg, err, info := buildMsgs(args...)

	events := []struct {
		event *zerolog.Event
		msg   string
	}{
		{l.structuredLogger.WithLevel(level), plainMsg},
		{l.unstructuredLogger.WithLevel(level), plainMsg},
		{l.unstructuredColorLogger.WithLevel(level), colorMsg},
	}
	for _, e := range events {
		// Disabled loggers hand back nil events, which zerolog treats as no-ops.
		if e.event == nil {
			continue
		}
		if err != nil {
			e.event = e.event.Err(err)
			if l.level <= zerolog.DebugLevel {
				e.event = e.event.Stack()
			}
		}
		if info != nil {
			e.event = e.event.Fields(map[string]any(info))
		}
		e.event.Msg(e.msg)
	}
}

// buildMsgs describes a function that takes in a variadic list of arguments of any type and returns two strings and,
// optionally, an error and a StructuredLogInfo object. The first string will be a colorized-string that can be used for
// console logging while the second string will be a non-colorized one that can be used for file/structured logging.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	consoleOutput := make([]string, 0)
	fileOutput := make([]string, 0)
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			colorCtx = t
		case StructuredLogInfo:
			// Only one structured log info can be provided for each log message
			info = t
		case error:
			// Only one error can be provided for each log message
			err = t
		default:
			consoleOutput = append(consoleOutput, colorCtx(t))
			fileOutput = append(fileOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(consoleOutput, ""), strings.Join(fileOutput, ""), err, info
}

// setupDefaultFormatting will update the console logger's formatting to the pbfuzz standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	noColor := writer.NoColor
	if !noColor {
		// zerolog styles messages and field names itself, route them through colors so DisableColor applies.
		writer.FormatMessage = func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%s", i)
		}
		writer.FormatFieldName = func(i any) string {
			return colors.Colorize(fmt.Sprintf("%s=", i), colors.CYAN)
		}
		writer.FormatErrFieldName = func(i any) string {
			return colors.Colorize(fmt.Sprintf("%s=", i), colors.CYAN)
		}
		writer.FormatErrFieldValue = func(i any) string {
			return colors.RedBold(fmt.Sprintf("%s", i))
		}
	}
	writer.FormatLevel = func(i any) string {
		levelStr, _ := i.(string)
		parsed, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}

		if noColor {
			if parsed == zerolog.InfoLevel {
				return colors.LEFT_ARROW
			}
			return levelStr
		}

		switch parsed {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
			return colors.RedBold(levelStr)
		default:
			return levelStr
		}
	}

	// If we are above debug level, we want to get rid of the `module` component when logging to console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}

	return writer
}
