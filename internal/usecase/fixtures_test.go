package usecase

import (
	"time"

	"TCAVis/internal/domain/models"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func timeFrame(n int, cols ...string) *models.Frame {
	f := &models.Frame{Index: make([]time.Time, n)}
	for i := range f.Index {
		f.Index[i] = t0.Add(time.Duration(i) * time.Minute)
	}
	for _, name := range cols {
		values := make([]float64, n)
		for i := range values {
			values[i] = float64(i) + 1
		}
		f.Columns = append(f.Columns, models.Column{Name: name, Values: values})
	}
	return f
}

func candles(ticker string, n int) *models.Candlestick {
	c := &models.Candlestick{Ticker: ticker}
	for i := 0; i < n; i++ {
		p := 1.1 + float64(i)/100
		c.Time = append(c.Time, t0.Add(time.Duration(i)*time.Minute))
		c.Open = append(c.Open, p)
		c.High = append(c.High, p+0.002)
		c.Low = append(c.Low, p-0.002)
		c.Close = append(c.Close, p+0.001)
	}
	return c
}
