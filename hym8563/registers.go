package hym8563

const (
	Address      = 0x51 // I2C address for HYM8563
	Control1     = 0x00 // Control and status register 1
	Control2     = 0x01 // Control and status register 2, interrupt enables and flags
	Time         = 0x02 // Time registers starting with seconds
	Alarm        = 0x09 // Alarm registers starting with minutes
	ClkOut       = 0x0D // CLKOUT frequency and enable
	TimerControl = 0x0E // Countdown timer control
	TimerCount   = 0x0F // Countdown timer value
)

const (
	timeLen  = 7
	alarmLen = 4
)

// Control2 bits.
const (
	TIE  Control2Bits = 1 << 0 // timer interrupt enable
	AIE  Control2Bits = 1 << 1 // alarm interrupt enable
	TF   Control2Bits = 1 << 2 // timer flag
	AF   Control2Bits = 1 << 3 // alarm flag
	TITP Control2Bits = 1 << 4 // timer interrupt pulses instead of following TF
)

// TimerControl bits. TD1:TD0 select the source clock: 4096 Hz, 64 Hz, 1 Hz, 1/60 Hz.
const (
	timerEnable = 0x80 // TE
	timerTD1    = 0x02
	timerTD0    = 0x01

	timerOn  = timerEnable | timerTD1 // counting at 1 Hz
	timerOff = timerTD1 | timerTD0    // stopped, lowest power source selected
)

const (
	clkOutEnable = 0x80 // FE
	clkOutMask   = 0x03 // FD1:FD0

	alarmDisable = 0x80 // AE_x, the field is ignored when set
	centuryBit   = 0x80 // month register, set for 19xx
	integrityBit = 0x80 // seconds register VL, set when the oscillator stopped
)
