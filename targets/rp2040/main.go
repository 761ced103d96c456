//go:build rp2040

package main

import (
	"machine"
	"sync/atomic"
	"time"

	"phagebox/config"
	"phagebox/core"
	"phagebox/protocol"
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput

	controller *core.Controller

	// Debug counters
	stepsRun  uint32
	msgerrors uint32

	// USB connection state, shared with the reader goroutine
	usbWasDisconnected       atomic.Bool
	resyncPending            atomic.Bool
	consecutiveWriteFailures uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitDebugUART()
	InitUSB()
	InitClock()
	DebugPrintln("phagebox " + protocol.Version)

	board := config.DefaultBoardConfig()

	gpioDriver := NewRPGPIODriver()
	sensor, err := NewProbeSensor(board)
	if err != nil {
		DebugPrintln("probe setup failed: " + err.Error())
		return
	}

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	ticks := &core.TickSource{}
	cfg, err := board.ControllerConfig(gpioDriver, sensor, ticks, outputBuffer, DebugPrintln)
	if err != nil {
		DebugPrintln("bad board config: " + err.Error())
		return
	}
	controller = core.NewController(cfg)

	UpdateSystemTime()
	if err := controller.Init(); err != nil {
		DebugPrintln("init failed: " + err.Error())
		return
	}

	// 1 Hz zone ticks
	go ticks.Run(nil, time.Duration(board.TickPeriodMS)*time.Millisecond)

	// Start USB reader goroutine
	go usbReaderLoop()

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					// Heaters off and clear buffers, then carry on
					controller.Shutdown()
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			// Update system time from hardware
			UpdateSystemTime()

			// A host reconnecting starts from a clean frame
			if resyncPending.Swap(false) {
				controller.Transport().Reset()
				outputBuffer.Reset()
			}

			controller.Step(inputBuffer)
			stepsRun++

			writeUSB()
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Millisecond)
	}
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	// Recover from panics to prevent a firmware crash
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			// Restart the reader loop
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			if usbWasDisconnected.Swap(false) {
				resyncPending.Store(true)
			}

			// Hold the byte until the control loop makes room
			for inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
			}
		}
		// Yield to avoid a busy loop
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB writes pending output to USB. A partial write leaves the rest
// pending for the next step.
func writeUSB() {
	for {
		pending := outputBuffer.Pending()
		if len(pending) == 0 {
			consecutiveWriteFailures = 0
			return
		}

		n, err := USBWriteBytes(pending)
		outputBuffer.Advance(n)
		if err != nil || n == 0 {
			// Write error or no progress - likely disconnect
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected.Store(true)
				consecutiveWriteFailures = 0
				// Don't keep trying to send stale telemetry
				outputBuffer.Reset()
			}
			return
		}
	}
}
