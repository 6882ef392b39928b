package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/thatsimonsguy/fireplace-controller/db"
	"github.com/thatsimonsguy/fireplace-controller/internal/ir"
	"github.com/thatsimonsguy/fireplace-controller/internal/irctl"
	"github.com/thatsimonsguy/fireplace-controller/internal/store"
	"github.com/thatsimonsguy/fireplace-controller/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, command, mode, timezone, signal, codebookFile, device string
	var servicePath, user, workdir, binary, configFile string
	var target float64
	var offset, carrier int
	var enabled bool
	flag.StringVar(&dbPath, "db", "data/fireplace.db", "Path to the SQLite database file")
	flag.StringVar(&command, "cmd", "", "Command to run: set-mode, set-target, set-offset, set-schedule, set-timezone, dump, learn, install-service")
	flag.StringVar(&mode, "mode", "", "Thermostat mode (HEAT or OFF)")
	flag.Float64Var(&target, "target", 0, "Target temperature in F")
	flag.IntVar(&offset, "offset", 0, "Fireplace offset in F (2-10, even)")
	flag.BoolVar(&enabled, "enabled", false, "Schedule enabled flag for set-schedule")
	flag.StringVar(&timezone, "timezone", "", "IANA timezone for set-timezone")
	flag.StringVar(&signal, "signal", "", "Signal name to learn, e.g. power_on or temp_up_from_70")
	flag.StringVar(&codebookFile, "codebook", "data/ir_codes.json", "Path to the IR codebook file")
	flag.StringVar(&device, "device", "/dev/lirc0", "LIRC device for learn")
	flag.IntVar(&carrier, "carrier", 36, "IR carrier in kHz")
	flag.StringVar(&servicePath, "service-path", "/etc/systemd/system/fireplace-controller.service", "Where install-service writes the unit")
	flag.StringVar(&user, "user", "pi", "Service user for install-service")
	flag.StringVar(&workdir, "workdir", "/home/pi/fireplace-controller", "Service working directory")
	flag.StringVar(&binary, "binary", "/usr/local/bin/fireplace-controller", "Controller binary for install-service")
	flag.StringVar(&configFile, "config-file", "config.json", "Config file passed to the service")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of fireplace-debug:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	var err error
	switch command {
	case "set-mode":
		err = db.SetModeCLI(dbPath, mode)
	case "set-target":
		err = db.SetTargetCLI(dbPath, target)
	case "set-offset":
		err = db.SetOffsetCLI(dbPath, offset)
	case "set-schedule":
		err = db.SetScheduleEnabledCLI(dbPath, enabled)
	case "set-timezone":
		err = db.SetTimezoneCLI(dbPath, timezone)
	case "dump":
		var out string
		out, err = db.DumpCLI(dbPath)
		if err == nil {
			fmt.Print(out)
		}
	case "learn":
		err = learn(codebookFile, device, carrier, signal)
	case "install-service":
		err = startup.InstallService(servicePath, startup.Unit{
			User:       user,
			WorkDir:    workdir,
			Binary:     binary,
			ConfigFile: configFile,
			DBPath:     dbPath,
			IRDevice:   device,
		})
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}

// learn captures one press of the remote and stores it under signal.
func learn(codebookFile, device string, carrier int, signal string) error {
	if signal == "" {
		return fmt.Errorf("signal name is required")
	}
	if !known(signal) {
		fmt.Printf("Warning: %s is not a signal the controller sends\n", signal)
	}

	st := store.New(codebookFile)
	codebook, err := st.Load()
	if errors.Is(err, fs.ErrNotExist) {
		codebook = ir.Codebook{}
	} else if err != nil {
		return err
	}

	fmt.Printf("Press the remote button for %s...\n", signal)
	pulses, err := irctl.New(device, carrier).Receive()
	if err != nil {
		return err
	}
	codebook[signal] = pulses
	if err := st.Save(codebook); err != nil {
		return err
	}

	if missing := codebook.Missing(); len(missing) > 0 {
		fmt.Printf("%d signals still to learn\n", len(missing))
	}
	return nil
}

func known(signal string) bool {
	for _, s := range ir.RequiredSignals() {
		if s == signal {
			return true
		}
	}
	return false
}
