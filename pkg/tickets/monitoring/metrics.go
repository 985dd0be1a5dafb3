package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketsOpened is the total number of tickets opened.
	TicketsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_opened_total",
			Help: "Total number of tickets opened",
		},
	)

	// TicketsClosed is the total number of tickets closed, by close path.
	TicketsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_closed_total",
			Help: "Total number of tickets closed",
		},
		[]string{"path"},
	)

	// TicketsRejected is the total number of rejected open requests, by reason.
	TicketsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_rejected_total",
			Help: "Total number of rejected ticket open requests",
		},
		[]string{"reason"},
	)

	// ActiveTickets is the current number of open tickets.
	ActiveTickets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickets_active",
			Help: "Current number of open tickets",
		},
	)
)
