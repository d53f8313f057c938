package melody

import "time"

// Pitches used by the built-in melody, in Hz.
const (
	noteF4  = 349
	noteGS4 = 415
	noteA4  = 440
	noteAS4 = 466
	noteB4  = 494
	noteC5  = 523
	noteCS5 = 554
	noteD5  = 587
	noteDS5 = 622
	noteE5  = 659
	noteF5  = 698
	noteFS5 = 740
	noteG5  = 784
	noteGS5 = 831
	noteA5  = 880
)

// Durations as fractions of a whole second.
const (
	whole   = 1000 * time.Millisecond
	half    = 500 * time.Millisecond
	third   = 333 * time.Millisecond
	quarter = 250 * time.Millisecond
	sixth   = 166 * time.Millisecond
	eighth  = 125 * time.Millisecond
)

// defaultMelody is the built-in alarm march.
var defaultMelody = []Note{
	{noteA4, half}, {noteA4, half}, {noteA4, half}, {noteF4, third},
	{noteC5, sixth}, {noteA4, half}, {noteF4, third}, {noteC5, sixth},
	{noteA4, whole}, {noteE5, half}, {noteE5, half}, {noteE5, half},
	{noteF5, third}, {noteC5, sixth}, {noteGS4, half}, {noteF4, third},
	{noteC5, sixth}, {noteA4, whole}, {noteA5, half}, {noteA4, third},
	{noteA4, sixth}, {noteA5, half}, {noteGS5, quarter}, {noteG5, quarter},
	{noteFS5, eighth}, {noteF5, eighth}, {noteFS5, quarter}, {0, third},
	{noteAS4, quarter}, {noteDS5, half}, {noteD5, quarter}, {noteCS5, quarter},
	{noteC5, eighth}, {noteB4, eighth}, {noteC5, quarter}, {0, third},
	{noteF4, sixth}, {noteGS4, half}, {noteF4, third}, {noteA4, sixth},
	{noteC5, half}, {noteA4, third}, {noteC5, sixth}, {noteE5, whole},
	{noteA5, half}, {noteA4, third}, {noteA4, eighth}, {noteA5, half},
	{noteGS5, quarter}, {noteG5, quarter}, {noteFS5, eighth}, {noteF5, eighth},
	{noteFS5, quarter}, {0, quarter}, {noteAS4, quarter}, {noteDS5, half},
	{noteD5, quarter}, {noteCS5, quarter}, {noteC5, eighth}, {noteB4, eighth},
	{noteC5, quarter}, {0, quarter}, {noteF4, quarter}, {noteGS4, half},
	{noteF4, third}, {noteC5, eighth}, {noteA4, half}, {noteF4, third},
	{noteC5, eighth}, {noteA4, whole},
}
