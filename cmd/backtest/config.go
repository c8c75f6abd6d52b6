package main

const (
	BarDataSource = "data/bars.csv"
	Instrument    = "orcl"

	StartingCash = 1_000_000

	FastWindow = 15
	SlowWindow = 50

	CommissionRate = "0.0005"
)
