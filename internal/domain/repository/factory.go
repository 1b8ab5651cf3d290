package repository

// Factory exposes the persistence facade as domain repositories.
type Factory interface {
	Orders() OrderRepository
	Events() EventRepository
	PrintJobs() PrintJobRepository
}
