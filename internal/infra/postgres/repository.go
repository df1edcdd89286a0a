package postgres

// Repository joins the pgx catalog and the bun store into one game gateway, catalog and
// history store.
type Repository struct {
	*Catalog
	*Store
}

func NewRepository(catalog *Catalog, store *Store) Repository {
	return Repository{Catalog: catalog, Store: store}
}
