package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in cents. It travels over JSON as a decimal number.
type Money int64

func MoneyFromFloat(value float64) Money {
	return Money(math.Round(value * 100))
}

func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f", m.Float())
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Float(), 'f', 2, 64)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("price must be a number")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("price must be a finite number")
	}
	*m = MoneyFromFloat(value)
	return nil
}
