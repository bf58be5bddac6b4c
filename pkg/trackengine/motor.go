package trackengine

import "time"

// motorInUse marks the motor as active, starting it if it was off. Must
// be called with e.mu held.
func (e *Engine) motorInUse(upperHead bool) {
	if !e.motor.on() {
		e.drive.MotorEnable(true, upperHead)
	}
	e.motor.turnOnTime = time.Now()
}

// waitForMotor blocks until the drive reports ready or MotorTimeoutTime
// elapses, re-asserting motorInUse each iteration the way a real drive's
// spin-up needs continual "still wanted" signals. Must be called with
// e.mu held; it releases nothing, matching the source's own use inside a
// held lock (its sleeps are short and bounded).
func (e *Engine) waitForMotor(upperHead bool) bool {
	e.motorInUse(upperHead)
	start := e.motor.turnOnTime
	for !e.drive.MotorReady() {
		time.Sleep(motorPollInterval)
		if time.Since(start) > MotorTimeoutTime {
			return false
		}
		e.motorInUse(upperHead)
	}
	return true
}

// monitorLoop is the background motor-idle-timeout and media-presence
// poller, ticking at monitorTick. It is the one place besides the public
// API surface that touches engine state, so it takes the same mutex.
func (e *Engine) monitorLoop() {
	defer close(e.monitorDone)
	ticker := time.NewTicker(monitorTick)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopMonitor:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	var (
		notify      bool
		nowInserted bool
		notifyType  DiskType
	)

	e.mu.Lock()
	if e.motor.on() && time.Since(e.motor.turnOnTime) > MotorIdleTimeout {
		e.flushPendingWrites()
		e.drive.MotorEnable(false, false)
		if !e.motor.alwaysIgnore {
			e.motor.ignoreErrors = false
		}
		e.motor.blockWriting = false
		e.motor.turnOnTime = time.Time{}
	}

	nowInserted = e.drive.IsDiskInDrive()
	if nowInserted != e.diskInDrive {
		if !nowInserted {
			e.drive.CylinderSeek(0, 0)
			e.drive.MotorEnable(false, false)
			e.dirty = make(map[int]int)
			e.planes.clearAll()
		}
		e.diskInDrive = nowInserted
		notify = true
	}
	e.mu.Unlock()

	if !notify || !e.identify {
		return
	}

	e.mu.Lock()
	e.planes.clearAll()
	if nowInserted {
		e.mu.Unlock()
		e.identifyFileSystem()
		e.mu.Lock()
	} else {
		e.diskType = Unknown
	}
	notifyType = e.diskType
	e.mu.Unlock()

	if e.onDiskChange != nil {
		e.onDiskChange(nowInserted, notifyType)
	}
}
