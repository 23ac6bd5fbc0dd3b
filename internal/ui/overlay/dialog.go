package overlay

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"pomodoro/internal/core/timekeeper"
	"pomodoro/internal/core/timer"
	"pomodoro/internal/i18n"
)

// Config defines the break screen visuals and timing.
type Config struct {
	Opacity        uint8
	Fullscreen     bool
	IdleTimeToOpen time.Duration
	IdlePoll       time.Duration
	ModalGrace     time.Duration
}

// DefaultConfig returns the config used when settings are unavailable.
func DefaultConfig() Config {
	return Config{
		Opacity:        230,
		Fullscreen:     true,
		IdleTimeToOpen: time.Minute,
		IdlePoll:       time.Second,
		ModalGrace:     500 * time.Millisecond,
	}
}

// Dialog is the break screen shown at the end of a pomodoro.
// Its methods must run on the UI thread.
type Dialog struct {
	window   fyne.Window
	config   Config
	idle     timekeeper.IdleChecker
	dispatch func(func())
	now      func() time.Time

	background  *canvas.Rectangle
	titleLabel  *canvas.Text
	bodyLabel   *canvas.Text
	timerLabel  *canvas.Text
	closeButton *widget.Button

	open       bool
	modal      bool
	modalSince time.Time
	destroyed  bool
	cancelIdle context.CancelFunc
	done       chan struct{}
	doneOnce   sync.Once

	onClosing []func()
	onDestroy []func()
}

const (
	dialogWidthFraction  = float32(0.4)
	dialogHeightFraction = float32(0.3)
	defaultScreenWidth   = float32(1920)
	defaultScreenHeight  = float32(1080)
	progressBuffer       = 8
)

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// New creates the break screen. handle feeds the remaining-time label, idle
// decides when OpenWhenIdle fires, dispatch runs callbacks on the UI thread.
func New(app fyne.App, handle timer.Handle, idle timekeeper.IdleChecker, dispatch func(func()), config Config) *Dialog {
	window := app.NewWindow(i18n.T("Pomodoro"))
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Splash window is undecorated (no native frame/buttons).
		window = driver.CreateSplashWindow()
	}
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}
	window.SetPadded(false)
	if dispatch == nil {
		dispatch = fyne.Do
	}

	background := canvas.NewRectangle(color.NRGBA{R: 0, G: 0, B: 0, A: config.Opacity})

	titleLabel := canvas.NewText(i18n.T("Take a break"), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	titleLabel.Alignment = fyne.TextAlignCenter
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	titleLabel.TextSize = 28

	bodyLabel := canvas.NewText(i18n.T("You worked hard. Stand up and stretch."), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	bodyLabel.Alignment = fyne.TextAlignCenter
	bodyLabel.TextSize = 17

	timerLabel := canvas.NewText("--:--", color.NRGBA{R: 232, G: 190, B: 66, A: 255})
	timerLabel.Alignment = fyne.TextAlignCenter
	timerLabel.TextStyle = fyne.TextStyle{Monospace: true}
	timerLabel.TextSize = 40

	closeButton := widget.NewButton(i18n.T("Close"), nil)

	content := container.New(&columnLayout{}, titleLabel, bodyLabel, timerLabel, closeButton)
	window.SetContent(container.NewStack(background, content))

	dialog := &Dialog{
		window:      window,
		config:      config,
		idle:        idle,
		dispatch:    dispatch,
		now:         time.Now,
		background:  background,
		titleLabel:  titleLabel,
		bodyLabel:   bodyLabel,
		timerLabel:  timerLabel,
		closeButton: closeButton,
		done:        make(chan struct{}),
	}

	closeButton.OnTapped = dialog.requestClose
	window.SetCloseIntercept(dialog.requestClose)
	window.Canvas().SetOnTypedKey(func(event *fyne.KeyEvent) {
		if event.Name == fyne.KeyEscape {
			dialog.requestClose()
		}
	})

	if handle != nil {
		go dialog.watchProgress(handle.Subscribe(progressBuffer))
	}
	return dialog
}

// Open shows the dialog and cancels a pending OpenWhenIdle.
func (dialog *Dialog) Open() {
	if dialog.destroyed {
		return
	}
	dialog.stopIdleWatch()
	if dialog.open {
		dialog.window.RequestFocus()
		return
	}
	dialog.open = true
	dialog.modal = false
	dialog.applyWindowMode()
	dialog.window.Show()
	dialog.window.RequestFocus()
}

// Close hides the dialog and emits closing if it was open.
func (dialog *Dialog) Close() {
	if !dialog.open {
		return
	}
	dialog.open = false
	dialog.modal = false
	if dialog.config.Fullscreen {
		dialog.window.SetFullScreen(false)
	}
	dialog.window.Hide()

	for _, handler := range append([]func(){}, dialog.onClosing...) {
		handler()
	}
}

// PushModal grabs the screen: fullscreen, focused, with accidental closes ignored for a grace period.
func (dialog *Dialog) PushModal() {
	if dialog.destroyed || !dialog.open {
		return
	}
	dialog.modal = true
	dialog.modalSince = dialog.now()
	dialog.window.SetFullScreen(true)
	dialog.window.RequestFocus()
}

// OpenWhenIdle opens the dialog once the user has been idle for IdleTimeToOpen.
func (dialog *Dialog) OpenWhenIdle() {
	if dialog.destroyed || dialog.open {
		return
	}
	dialog.stopIdleWatch()
	if dialog.idle == nil {
		log.Printf("break screen: idle detection unavailable")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	dialog.cancelIdle = cancel
	go dialog.watchIdle(ctx, dialog.idle, dialog.config.IdleTimeToOpen, dialog.config.IdlePoll)
}

// Destroy closes the window for good and emits destroy. It does not emit closing.
func (dialog *Dialog) Destroy() {
	if dialog.destroyed {
		return
	}
	dialog.destroyed = true
	dialog.open = false
	dialog.modal = false
	dialog.stopIdleWatch()
	dialog.doneOnce.Do(func() { close(dialog.done) })
	dialog.window.Close()

	handlers := dialog.onDestroy
	dialog.onDestroy = nil
	dialog.onClosing = nil
	for _, handler := range handlers {
		handler()
	}
}

// OnClosing registers a handler run each time an open dialog closes.
func (dialog *Dialog) OnClosing(handler func()) {
	dialog.onClosing = append(dialog.onClosing, handler)
}

// OnDestroy registers a handler run once on Destroy.
func (dialog *Dialog) OnDestroy(handler func()) {
	dialog.onDestroy = append(dialog.onDestroy, handler)
}

// IsOpen reports whether the dialog is on screen.
func (dialog *Dialog) IsOpen() bool {
	return dialog.open
}

// IsModal reports whether the dialog was pushed modal since it opened.
func (dialog *Dialog) IsModal() bool {
	return dialog.modal
}

// Destroyed reports whether Destroy was called.
func (dialog *Dialog) Destroyed() bool {
	return dialog.destroyed
}

// UpdateConfig updates visuals and timing.
func (dialog *Dialog) UpdateConfig(config Config) {
	dialog.config = config
	dialog.background.FillColor = color.NRGBA{R: 0, G: 0, B: 0, A: config.Opacity}
	canvas.Refresh(dialog.background)
	if dialog.open {
		dialog.applyWindowMode()
	}
}

func (dialog *Dialog) requestClose() {
	if dialog.modal && dialog.now().Sub(dialog.modalSince) < dialog.config.ModalGrace {
		return
	}
	dialog.Close()
}

func (dialog *Dialog) stopIdleWatch() {
	if dialog.cancelIdle != nil {
		dialog.cancelIdle()
		dialog.cancelIdle = nil
	}
}

func (dialog *Dialog) watchIdle(ctx context.Context, checker timekeeper.IdleChecker, threshold, poll time.Duration) {
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		idle, err := checker.IdleDuration()
		switch {
		case errors.Is(err, timekeeper.ErrIdleUnsupported):
			log.Printf("break screen: %v", err)
			return
		case err != nil:
			log.Printf("break screen: idle: %v", err)
		case idle >= threshold:
			dialog.dispatch(func() {
				if ctx.Err() == nil {
					dialog.Open()
				}
			})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (dialog *Dialog) watchProgress(events <-chan timer.Event) {
	for {
		select {
		case <-dialog.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			remaining := event.Remaining()
			dialog.dispatch(func() {
				dialog.setRemaining(remaining)
			})
		}
	}
}

func (dialog *Dialog) setRemaining(remaining time.Duration) {
	dialog.timerLabel.Text = formatDuration(remaining)
	dialog.timerLabel.Refresh()
}

func (dialog *Dialog) applyWindowMode() {
	if dialog.config.Fullscreen || dialog.modal {
		dialog.window.SetFullScreen(true)
		return
	}
	dialog.window.SetFullScreen(false)
	dialog.resizeToScreenFraction()
}

func (dialog *Dialog) resizeToScreenFraction() {
	screenSize := fyne.NewSize(defaultScreenWidth, defaultScreenHeight)
	canvasSize := dialog.window.Canvas().Size()
	// Canvas size can be reused as a proxy for monitor size when it is clearly screen-like.
	if canvasSize.Width >= 1024 && canvasSize.Height >= 720 {
		screenSize = canvasSize
	}

	width := screenSize.Width * dialogWidthFraction
	height := screenSize.Height * dialogHeightFraction
	minSize := dialog.window.Content().MinSize()
	if width < minSize.Width {
		width = minSize.Width
	}
	if height < minSize.Height {
		height = minSize.Height
	}

	dialog.window.Resize(fyne.NewSize(width, height))
	dialog.window.CenterOnScreen()
}

func formatDuration(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	seconds := int(value.Seconds())
	minutes := seconds / 60
	seconds = seconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// columnLayout stacks its objects in a centered column.
type columnLayout struct{}

const columnGap = float32(12)

func (layout *columnLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	total := layout.MinSize(objects)
	y := (size.Height - total.Height) / 2
	if y < 0 {
		y = 0
	}
	for _, object := range objects {
		objectSize := object.MinSize()
		width := objectSize.Width
		if _, isButton := object.(*widget.Button); isButton {
			width = width * 1.4
		}
		if width > size.Width {
			width = size.Width
		}
		object.Move(fyne.NewPos((size.Width-width)/2, y))
		object.Resize(fyne.NewSize(width, objectSize.Height))
		y += objectSize.Height + columnGap
	}
}

func (layout *columnLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var width, height float32
	for index, object := range objects {
		objectSize := object.MinSize()
		if objectSize.Width > width {
			width = objectSize.Width
		}
		height += objectSize.Height
		if index > 0 {
			height += columnGap
		}
	}
	return fyne.NewSize(width+20, height+40)
}
