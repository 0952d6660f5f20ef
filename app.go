package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.bug.st/serial"

	"capture-assistant/pkg/capture"
	"capture-assistant/pkg/config"
	"capture-assistant/pkg/renderdoc"
)

// captureAPI is the part of *renderdoc.API the control panel uses.
type captureAPI interface {
	renderdoc.FrameCaptureAPI
	APIVersion() (major, minor, patch int)
	NumCaptures() uint32
	TriggerCapture()
	Close() error
}

// loadCaptureAPI loads RenderDoc. Replaced in tests.
var loadCaptureAPI = func(path string) (captureAPI, error) {
	api, err := renderdoc.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	return api, nil
}

// App struct
type App struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger

	api       captureAPI
	loadErr   error
	scheduler *capture.Scheduler
	stopLoop  context.CancelFunc

	port         serial.Port
	isConnected  bool
	mutex        sync.Mutex
	readStopChan chan struct{}

	// emit pushes an event to the frontend.
	emit func(name string, data ...interface{})
}

// NewApp creates a new App application struct
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.emit = func(name string, data ...interface{}) {
		runtime.EventsEmit(ctx, name, data...)
	}

	api, err := loadCaptureAPI(a.cfg.RenderDoc.Library)
	if err != nil {
		a.logger.Warn("RenderDoc not available, captures disabled", "err", err)
		a.attach(nil, err)
	} else {
		a.attach(api, nil)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	a.stopLoop = cancel
	go func() {
		_ = a.scheduler.Run(loopCtx, a.cfg.Headless.FPS, nil)
	}()
}

// attach wires the scheduler to api. A nil api leaves capture disabled.
func (a *App) attach(api captureAPI, loadErr error) {
	a.api = api
	a.loadErr = loadErr
	if api != nil {
		a.scheduler = capture.NewScheduler(api)
	} else {
		a.scheduler = capture.NewScheduler(nil)
	}
	a.scheduler.OnEvent(func(ev capture.Event) {
		a.send("capture-event", ev)
	})
}

// shutdown stops the frame loop, the trigger port and releases RenderDoc.
func (a *App) shutdown(ctx context.Context) {
	if a.stopLoop != nil {
		a.stopLoop()
	}
	a.CloseTrigger()
	if a.api != nil {
		_ = a.api.Close()
	}
}

func (a *App) send(name string, data ...interface{}) {
	if a.emit != nil {
		a.emit(name, data...)
	}
}

// IsAvailable reports whether RenderDoc was found.
func (a *App) IsAvailable() bool {
	return a.api != nil
}

// Status 返回 RenderDoc 状态描述
func (a *App) Status() string {
	if a.api == nil {
		return fmt.Sprintf("Unavailable: %v", a.loadErr)
	}
	major, minor, patch := a.api.APIVersion()
	state := "idle"
	if a.scheduler.Capturing() {
		state = "capturing"
	}
	return fmt.Sprintf("RenderDoc %d.%d.%d, %s, %d pending, %d captured",
		major, minor, patch, state, a.scheduler.Remaining(), a.api.NumCaptures())
}

// CaptureFrames 捕获接下来的 n 帧
func (a *App) CaptureFrames(n int) string {
	if a.api == nil {
		return "Error: RenderDoc not available"
	}
	if n < 0 {
		return "Error: frame count must be >= 0"
	}
	a.scheduler.Request(n)
	return "Success"
}

// StartCapture 开始手动捕获
func (a *App) StartCapture() string {
	if a.api == nil {
		return "Error: RenderDoc not available"
	}
	if err := a.scheduler.Begin(); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return "Capturing"
}

// EndCapture 结束手动捕获
func (a *App) EndCapture() string {
	if a.api == nil {
		return "Error: RenderDoc not available"
	}
	if err := a.scheduler.End(); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return "Captured"
}

// TriggerCapture asks RenderDoc to grab the next presented frame.
func (a *App) TriggerCapture() string {
	if a.api == nil {
		return "Error: RenderDoc not available"
	}
	a.scheduler.Trigger()
	return "Triggered"
}

// GetSerialPorts 获取串口列表
func (a *App) GetSerialPorts() ([]string, error) {
	return capture.ListSerialPorts()
}

// OpenTrigger 打开触发串口 (支持完整参数)
func (a *App) OpenTrigger(portName string, baudRate int, dataBits int, stopBits int, parityName string) string {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.isConnected {
		return "Port already open"
	}

	port, err := capture.OpenSerial(capture.SerialConfig{
		Port:     portName,
		BaudRate: baudRate,
		DataBits: dataBits,
		StopBits: stopBits,
		Parity:   parityName,
	})
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	a.port = port
	a.isConnected = true
	a.readStopChan = make(chan struct{})

	go a.readLoop(port, a.readStopChan)

	return "Success"
}

// readLoop 读取触发命令并交给调度器
func (a *App) readLoop(port serial.Port, stop chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := capture.ReadCommands(ctx, port, func(cmd capture.Command) bool {
		if _, err := capture.Dispatch(a.scheduler, cmd); err != nil {
			a.logger.Warn("trigger command failed", "command", cmd.Verb, "err", err)
			a.send("trigger-error", err.Error())
		}
		// die 只关闭串口，不退出程序
		return cmd.Verb != capture.CmdQuit
	})

	select {
	case <-stop:
		return
	default:
	}
	if err != nil {
		a.send("trigger-error", err.Error())
	}
	a.closeTrigger(port)
}

// CloseTrigger 关闭触发串口
func (a *App) CloseTrigger() string {
	return a.closeTrigger(nil)
}

// closeTrigger closes the open trigger port. A non-nil only restricts the
// close to that port, so a finished read loop never closes a newer port.
func (a *App) closeTrigger(only serial.Port) string {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if !a.isConnected || (only != nil && a.port != only) {
		return "Port not open"
	}

	close(a.readStopChan) // 停止读取协程
	err := a.port.Close()
	a.isConnected = false
	a.port = nil

	if err != nil {
		return fmt.Sprintf("Error closing: %v", err)
	}
	return "Closed"
}
