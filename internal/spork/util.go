package spork

import (
	"encoding/hex"
	"time"
)

func hexDecode(s string) ([]byte, error) { return hex.DecodeString(s) }

func wallClockNow() int64 { return time.Now().Unix() }
