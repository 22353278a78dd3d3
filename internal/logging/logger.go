package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из строки конфигурации (регистр не важен)
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
	}
}

// Logger представляет логгер компонента: консоль + опциональный файл
type Logger struct {
	component       string
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
	mu              sync.Mutex
}

var (
	logDirMu sync.RWMutex
	logDir   string // пусто - файловые логи отключены
)

// defaultLogger пишет только в консоль, пока не вызван InitDefaultLogger
var defaultLogger = &Logger{
	component:       "default",
	consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
	minConsoleLevel: INFO,
	minFileLevel:    DEBUG,
}

// SetLogDir включает запись логов в файлы внутри dir
func SetLogDir(dir string) {
	logDirMu.Lock()
	logDir = dir
	logDirMu.Unlock()
}

func currentLogDir() string {
	logDirMu.RLock()
	defer logDirMu.RUnlock()
	return logDir
}

// NewLogger создаёт логгер компонента. Файл создаётся только если задан каталог логов.
func NewLogger(component string) (*Logger, error) {
	l := &Logger{
		component:       component,
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		minConsoleLevel: INFO,
		minFileLevel:    DEBUG,
	}

	dir := currentLogDir()
	if dir == "" {
		return l, nil
	}

	// Создаем директорию для логов
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}

	// Создаем файл для логов с временной меткой
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	l.file = file
	l.fileLogger = log.New(file, "", log.LstdFlags)
	return l, nil
}

// NewWriterLogger создаёт логгер, пишущий в произвольный writer (удобно в тестах)
func NewWriterLogger(component string, w io.Writer, level LogLevel) *Logger {
	return &Logger{
		component:       component,
		consoleLogger:   log.New(w, "", 0),
		minConsoleLevel: level,
		minFileLevel:    level,
	}
}

// Close закрывает файл логгера
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

// SetConsoleLevel меняет минимальный уровень вывода в консоль
func (l *Logger) SetConsoleLevel(level LogLevel) {
	l.mu.Lock()
	l.minConsoleLevel = level
	l.mu.Unlock()
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.logMessage(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.logMessage(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.logMessage(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.logMessage(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.logMessage(ERROR, format, args...) }

// logMessage внутренняя функция для логирования
func (l *Logger) logMessage(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minConsoleLevel && (l.fileLogger == nil || level < l.minFileLevel) {
		return
	}

	message := fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, fmt.Sprintf(format, args...))

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Println(message)
	}

	if level >= l.minConsoleLevel {
		l.consoleLogger.Println(message)
	}
}

// InitDefaultLogger инициализирует логгер по умолчанию для компонента
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}
	logger.minConsoleLevel = defaultLogger.minConsoleLevel
	defaultLogger = logger
	return nil
}

// CloseDefaultLogger закрывает логгер по умолчанию
func CloseDefaultLogger() {
	if defaultLogger != nil {
		defaultLogger.Close()
	}
}

// SetDefaultLogger подменяет логгер по умолчанию и возвращает предыдущий
func SetDefaultLogger(l *Logger) *Logger {
	prev := defaultLogger
	defaultLogger = l
	return prev
}

// SetDefaultLevel меняет уровень консольного вывода логгера по умолчанию
func SetDefaultLevel(level LogLevel) {
	defaultLogger.SetConsoleLevel(level)
}

// Trace логирует сообщение уровня TRACE в логгер по умолчанию
func Trace(format string, args ...interface{}) { defaultLogger.Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG в логгер по умолчанию
func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }

// Info логирует сообщение уровня INFO в логгер по умолчанию
func Info(format string, args ...interface{}) { defaultLogger.Info(format, args...) }

// Warn логирует сообщение уровня WARN в логгер по умолчанию
func Warn(format string, args ...interface{}) { defaultLogger.Warn(format, args...) }

// Error логирует сообщение уровня ERROR в логгер по умолчанию
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }

// LogChunkGenerated логирует генерацию чанка
func LogChunkGenerated(chunkX, chunkZ int, seed uint32, elapsed time.Duration) {
	Debug("Chunk(%d,%d) generated with seed %d in %s", chunkX, chunkZ, seed, elapsed)
}

// LogChunkData логирует отправку данных чанка
func LogChunkData(connID string, chunkX, chunkZ int, blockCount int) {
	Debug("Chunk data sent to %s: chunk(%d,%d) with %d blocks", connID, chunkX, chunkZ, blockCount)
}
