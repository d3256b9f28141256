package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	datasetVisitsLoaded  atomic.Int64
	datasetRowsDropped   atomic.Int64
	datasetPatients      atomic.Int64
	loginsSucceeded      atomic.Int64
	loginsFailed         atomic.Int64
	assessmentsTotal     atomic.Int64
	modelUnavailable     atomic.Int64
	appointmentsBooked   atomic.Int64
	appointmentSinkError atomic.Int64
)

func ObserveDataset(loaded, dropped, patients int) {
	datasetVisitsLoaded.Store(int64(loaded))
	datasetRowsDropped.Store(int64(dropped))
	datasetPatients.Store(int64(patients))
}

func ObserveLogin(ok bool) {
	if ok {
		loginsSucceeded.Add(1)
		return
	}
	loginsFailed.Add(1)
}

func ObserveAssessment(modelAvailable bool) {
	assessmentsTotal.Add(1)
	if !modelAvailable {
		modelUnavailable.Add(1)
	}
}

func ObserveAppointment(booked bool, sinkFailures int) {
	if booked {
		appointmentsBooked.Add(1)
	}
	appointmentSinkError.Add(int64(sinkFailures))
}

type sample struct {
	name  string
	kind  string
	help  string
	value int64
}

func snapshot() []sample {
	return []sample{
		{"vitals_dataset_visits_loaded", "gauge", "Number of visits loaded from the dataset.", datasetVisitsLoaded.Load()},
		{"vitals_dataset_rows_dropped", "gauge", "Number of dataset rows dropped while loading.", datasetRowsDropped.Load()},
		{"vitals_dataset_patients", "gauge", "Number of distinct patient identifiers in the dataset.", datasetPatients.Load()},
		{"vitals_logins_succeeded_total", "counter", "Number of successful patient logins.", loginsSucceeded.Load()},
		{"vitals_logins_failed_total", "counter", "Number of rejected patient logins.", loginsFailed.Load()},
		{"vitals_assessments_total", "counter", "Number of risk assessments computed.", assessmentsTotal.Load()},
		{"vitals_model_unavailable_total", "counter", "Number of assessments computed without a model prediction.", modelUnavailable.Load()},
		{"vitals_appointments_booked_total", "counter", "Number of appointments booked.", appointmentsBooked.Load()},
		{"vitals_appointment_sink_errors_total", "counter", "Number of failed appointment log writes.", appointmentSinkError.Load()},
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	for _, s := range snapshot() {
		fmt.Fprintf(w, "# HELP %s %s\n", s.name, s.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", s.name, s.kind)
		fmt.Fprintf(w, "%s %d\n", s.name, s.value)
	}
}
