package display

import "go.uber.org/zap"

// LogDisplay writes renders to the log as binary rows, standing in for
// the LED panel on machines without one.
type LogDisplay struct {
	log *zap.SugaredLogger
}

// NewLogDisplay creates a LogDisplay writing to log.
func NewLogDisplay(log *zap.SugaredLogger) *LogDisplay {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LogDisplay{log: log}
}

// ShowBinaryTime logs the three rows, converting the hour for 12-hour
// mode the way the panel would.
func (d *LogDisplay) ShowBinaryTime(hour, minute, second int, use12Hour bool) {
	h := hour
	suffix := ""
	if use12Hour {
		suffix = " AM"
		if h >= 12 {
			suffix = " PM"
		}
		h = h % 12
		if h == 0 {
			h = 12
		}
	}
	d.log.Infof("display %02d:%02d:%02d%s  H=%05b M=%06b S=%06b", h, minute, second, suffix, h, minute, second)
}

// ShowPattern logs the pattern name.
func (d *LogDisplay) ShowPattern(p Pattern) {
	d.log.Infof("display pattern %s", p)
}
