package storage

// InitStore connects the run-history store to the postgres instance behind
// the given connection string.
func InitStore(dbConnStr string) (*PostgresStore, error) {
	return NewPostgresStore(dbConnStr)
}
