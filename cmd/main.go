package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"pomodoro/internal/bus"
	"pomodoro/internal/extension"
	"pomodoro/internal/platform"
	"pomodoro/internal/shell"
	"pomodoro/resources"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/godbus/dbus/v5"
)

const (
	appName = "pomodoro-indicator"
	appID   = "org.gnome.pomodoro.indicator"
	version = "0.1.0"
)

var metadata = extension.Metadata{
	UUID:    "pomodoro@arun.codito.in",
	Name:    "Pomodoro",
	Version: version,
}

func main() {
	if len(os.Args) > 1 {
		os.Exit(runCommand(os.Args[1:]))
	}

	conn, err := bus.Session()
	if err != nil {
		log.Printf("session bus unavailable, using the local timer: %v", err)
		conn = nil
	}

	host := shell.New(nil)
	lockInstance := conn == nil
	if conn != nil {
		defer closeBus(conn)
		// The action service name doubles as the single-instance guard.
		actions, err := bus.ExportActions(conn, host.Keybindings())
		if errors.Is(err, bus.ErrNameTaken) {
			log.Printf("single instance: %v", err)
			return
		}
		if err != nil {
			log.Printf("action service: %v", err)
			lockInstance = true
		} else {
			defer func() {
				if err := actions.Close(); err != nil {
					log.Printf("action service: %v", err)
				}
			}()
		}

		if shortcuts, err := platform.NewGnomeShortcuts(appName); err != nil {
			log.Printf("keyboard shortcuts: %v", err)
		} else {
			host.Keybindings().SetGrabber(shortcuts)
		}
	}
	if lockInstance {
		guard, err := platform.AcquireSingleInstance(appName)
		if err != nil {
			log.Printf("single instance: %v", err)
			return
		}
		defer func() {
			_ = guard.Release()
		}()
	}

	fyneApp := app.NewWithID(appID)
	fyneApp.SetIcon(resources.MustIcon(resources.IconPomodoro))
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		log.Printf("system tray unsupported on this platform")
		return
	}

	trayWindow := fyneApp.NewWindow("Pomodoro")
	trayWindow.SetContent(widget.NewLabel("Pomodoro is running in the system tray."))
	trayWindow.SetCloseIntercept(func() {
		trayWindow.Hide()
	})
	trayWindow.Hide()
	desktopApp.SetSystemTrayWindow(trayWindow)

	var ext *extension.Extension
	components := shell.NewComponents(fyneApp, host, conn, shell.Options{
		AppName: appName,
		OnQuit:  fyneApp.Quit,
		OnSettingsSaved: func() {
			ext.Disable()
			ext.Enable()
		},
	})
	ext = extension.New(host, components)
	ext.Init(metadata)

	fyneApp.Lifecycle().SetOnStarted(ext.Enable)
	fyneApp.Lifecycle().SetOnStopped(ext.Disable)
	fyneApp.Run()
}

func closeBus(conn *dbus.Conn) {
	if err := conn.Close(); err != nil {
		log.Printf("session bus: %v", err)
	}
}

func runCommand(args []string) int {
	switch args[0] {
	case "toggle":
		return activate(extension.ToggleTimerAction)
	case "activate":
		if len(args) != 2 {
			fmt.Fprintf(os.Stderr, "usage: %s activate <action>\n", appName)
			return 2
		}
		return activate(args[1])
	case "version", "--version":
		fmt.Printf("%s %s\n", appName, version)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [toggle|activate <action>|version]\n", appName)
		return 2
	}
}

// activate asks the running indicator to run action, so a desktop custom
// shortcut can call "pomodoro-indicator toggle".
func activate(action string) int {
	conn, err := bus.Session()
	if err != nil {
		log.Printf("%s: %v", action, err)
		return 1
	}
	defer closeBus(conn)

	if err := bus.CallActivate(conn, action); err != nil {
		log.Printf("%s: %v", action, err)
		return 1
	}
	return 0
}
