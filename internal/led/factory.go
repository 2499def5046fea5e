package led

import (
	"fmt"
	"os"
	"strings"

	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Driver selects the indicator backend.
type Driver string

// Supported drivers.
const (
	DriverAuto     Driver = "auto"
	DriverSysfs    Driver = "sysfs"
	DriverGPIO     Driver = "gpio"
	DriverModbus   Driver = "modbus"
	DriverTerminal Driver = "terminal"
	DriverNoop     Driver = "noop"
)

// Options configures New.
type Options struct {
	Driver Driver

	// Sysfs LED names for the red, green and blue channels.
	SysfsLEDs [3]string

	// GPIO pin names (periph naming, e.g. "GPIO17") for red, green, blue.
	GPIOPins      [3]string
	GPIOActiveLow bool

	Modbus ModbusOptions

	// Mirror additionally renders every color on the terminal.
	Mirror bool
}

// New creates an indicator sink for the configured driver.
// Falls back to the no-op sink if the hardware is not available.
func New(opts Options, logger logging.Logger) intent.IndicatorSink {
	sink := newDriver(opts, logger)
	if opts.Mirror && opts.Driver != DriverTerminal {
		return Tee(sink, NewTerminal(os.Stdout))
	}
	return sink
}

func newDriver(opts Options, logger logging.Logger) intent.IndicatorSink {
	switch opts.Driver {
	case DriverSysfs:
		return newSysfs(sysfsLEDPath, opts.SysfsLEDs)
	case DriverGPIO:
		s, err := newGPIO(opts.GPIOPins, opts.GPIOActiveLow)
		if err != nil {
			logger.Warn("GPIO indicator unavailable, using no-op sink", "error", err)
			return newNoop(logger)
		}
		return s
	case DriverModbus:
		s, err := NewModbus(opts.Modbus)
		if err != nil {
			logger.Warn("Modbus indicator unavailable, using no-op sink", "error", err)
			return newNoop(logger)
		}
		return s
	case DriverTerminal:
		return NewTerminal(os.Stdout)
	case DriverNoop:
		return newNoop(logger)
	case DriverAuto, "":
		return detect(detectBoard(deviceTreeModelPath), logger)
	default:
		logger.Warn("Unknown indicator driver, using no-op sink", "driver", opts.Driver)
		return newNoop(logger)
	}
}

// detect picks a sysfs mapping based on the board model.
func detect(boardModel string, logger logging.Logger) intent.IndicatorSink {
	logger.Info("Detecting board for indicator control", "board_model", boardModel)

	switch {
	case strings.Contains(boardModel, "NanoPC-T6"):
		logger.Info("Detected NanoPC-T6, using sysfs indicator")
		return newSysfs(sysfsLEDPath, [3]string{"sys_led", "usr_led", ""})

	case strings.Contains(boardModel, "Orange Pi"):
		logger.Info("Detected Orange Pi, using sysfs indicator")
		return newSysfs(sysfsLEDPath, [3]string{"", "green_led", "blue_led"})

	case strings.Contains(boardModel, "Raspberry Pi"):
		logger.Info("Detected Raspberry Pi, using sysfs indicator")
		return newSysfs(sysfsLEDPath, [3]string{"PWR", "ACT", ""})

	default:
		logger.Info("No indicator support detected, using no-op sink", "board_model", boardModel)
		return newNoop(logger)
	}
}

// detectBoard reads the device tree model to identify the board.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	return strings.TrimRight(string(data), "\x00")
}

// ParseDriver validates a driver name.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case "", DriverAuto:
		return DriverAuto, nil
	case DriverSysfs, DriverGPIO, DriverModbus, DriverTerminal, DriverNoop:
		return d, nil
	default:
		return "", fmt.Errorf("unknown indicator driver %q", s)
	}
}
