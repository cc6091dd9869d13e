package pod5

import (
	"time"

	"github.com/google/uuid"
)

// PoreData describes the pore a read was sequenced through.
type PoreData struct {
	Channel  uint16
	Well     uint8
	PoreType string
}

// EndReasonType enumerates why a read ended, mirroring the pod5
// end_reason vocabulary.
type EndReasonType int

const (
	EndReasonUnknown EndReasonType = iota
	EndReasonMuxChange
	EndReasonUnblockMuxChange
	EndReasonDataServiceUnblockMuxChange
	EndReasonSignalPositive
	EndReasonSignalNegative
	EndReasonAPIRequest
	EndReasonDeviceDataError
	EndReasonAnalysisConfigChange
	EndReasonPaused
)

var endReasonNames = [...]string{
	"unknown", "mux_change", "unblock_mux_change",
	"data_service_unblock_mux_change", "signal_positive",
	"signal_negative", "api_request", "device_data_error",
	"analysis_config_change", "paused",
}

func (e EndReasonType) String() string {
	if int(e) < len(endReasonNames) {
		return endReasonNames[e]
	}
	return "unknown"
}

// parseEndReasonType maps a stored end_reason string back to its
// EndReasonType, defaulting to EndReasonUnknown for any value this
// package's vocabulary doesn't recognize (an older or newer file might
// carry a name this version doesn't know).
func parseEndReasonType(name string) EndReasonType {
	for i, n := range endReasonNames {
		if n == name {
			return EndReasonType(i)
		}
	}
	return EndReasonUnknown
}

// EndReasonData describes why a read ended and whether that end was
// forced (by the device) rather than a natural signal transition.
type EndReasonData struct {
	Name   EndReasonType
	Forced bool
}

// CalibrationData holds the linear ADC-to-picoamp calibration a read's
// samples should be interpreted under: pico_amps = (adc + offset) * scale.
type CalibrationData struct {
	Offset float32
	Scale  float32
}

// RunInfoData describes one sequencing acquisition run. Reads reference
// a RunInfoData row by its AcquisitionID, deduplicated across the file
// the same way pore_type and end_reason values are.
type RunInfoData struct {
	AcquisitionID         string
	AcquisitionStartTime  time.Time
	AdcMax                int16
	AdcMin                int16
	ContextTags           map[string]string
	ExperimentName        string
	FlowCellID            string
	FlowCellProductCode   string
	ProtocolName          string
	ProtocolRunID         string
	ProtocolStartTime     time.Time
	SampleID              string
	SampleRate            uint16
	SequencingKit         string
	SequencerPosition     string
	SequencerPositionType string
	Software              string
	SystemName            string
	SystemType            string
	TrackingID            map[string]string
}

// ReadData is one row of the read table: the per-read metadata pod5
// stores separately from the raw signal itself.
type ReadData struct {
	ReadID       uuid.UUID
	ReadNumber   uint32
	Start        uint64
	MedianBefore float32

	NumMinknowEvents       uint64
	TrackedScalingScale    float32
	TrackedScalingShift    float32
	PredictedScalingScale  float32
	PredictedScalingShift  float32
	NumReadsSinceMuxChange uint32
	TimeSinceMuxChange     float32

	NumSamples uint64

	Pore        PoreData
	Calibration CalibrationData
	EndReason   EndReasonData
	RunInfo     string // run_info AcquisitionID this read references

	// Signal holds the row indices of this read's chunks in the signal
	// table, in playback order, once resolved from the file. Writers
	// populate it as chunks are appended; readers populate it from the
	// read table's "signal" column.
	Signal []uint64
}

// SignalRowCount returns the number of signal-table rows this read's
// samples are split across.
func (r ReadData) SignalRowCount() int { return len(r.Signal) }
