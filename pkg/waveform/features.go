package waveform

// NotFoundTime marks a crossing time that was not found.
const NotFoundTime = -100e9

// Config drives the extraction of one channel. Window bounds are in ns,
// the threshold in mV above pedestal.
type Config struct {
	WindowLo  float64 `json:"search_window_lo" yaml:"search_window_lo"`
	WindowHi  float64 `json:"search_window_hi" yaml:"search_window_hi"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

func DefaultConfig() Config {
	return Config{WindowLo: -10, WindowHi: 10, Threshold: 20}
}

// Features of one pulse. Times in ns, amplitudes in mV, charges in mV*ns.
// T1 values belong to the rising edge, T2 values to the falling edge.
type Features struct {
	Valid          Flag    `json:"valid" db:"valid"`
	NSamples       int     `json:"nsamples" db:"nsamples"`
	PedStart       float64 `json:"ped_start" db:"ped_start"`
	PedStartStdDev float64 `json:"ped_start_std_dev" db:"ped_start_std_dev"`
	PedEnd         float64 `json:"ped_end" db:"ped_end"`
	PedEndStdDev   float64 `json:"ped_end_std_dev" db:"ped_end_std_dev"`
	Amp            float64 `json:"amp" db:"amp"`
	TAmp           float64 `json:"t_amp" db:"t_amp"`
	T1             float64 `json:"t1" db:"t1"`
	T1At10         float64 `json:"t1_10" db:"t1_10"`
	T1At50         float64 `json:"t1_50" db:"t1_50"`
	T1At90         float64 `json:"t1_90" db:"t1_90"`
	TOA            float64 `json:"toa" db:"toa"`
	Charge         float64 `json:"charge" db:"charge"`
	T2             float64 `json:"t2" db:"t2"`
	T2At10         float64 `json:"t2_10" db:"t2_10"`
	T2At50         float64 `json:"t2_50" db:"t2_50"`
	T2At90         float64 `json:"t2_90" db:"t2_90"`
	Q10            float64 `json:"q_10" db:"q_10"`
	Q50            float64 `json:"q_50" db:"q_50"`
	Q90            float64 `json:"q_90" db:"q_90"`
	QPm2ns         float64 `json:"q_pm2ns" db:"q_pm2ns"`
	QFull          float64 `json:"q_full" db:"q_full"`
}

// NewFeatures returns a record with every crossing time unset.
func NewFeatures() Features {
	return Features{
		T1:     NotFoundTime,
		T1At10: NotFoundTime,
		T1At50: NotFoundTime,
		T1At90: NotFoundTime,
		TOA:    NotFoundTime,
		T2:     NotFoundTime,
		T2At10: NotFoundTime,
		T2At50: NotFoundTime,
		T2At90: NotFoundTime,
	}
}

func (f Features) HasWaveform() bool {
	return !f.Valid.Has(NoWaveform)
}
