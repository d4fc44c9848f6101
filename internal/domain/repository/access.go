package repository

// DataAccess agrupa los repositorios de la partición de UN tenant.
// Es lo único que las capas de servicio conocen del storage: nunca ven el
// pool ni el schema, sólo repositorios ya ligados al tenant resuelto.
type DataAccess interface {
	Users() UserRepository
	Sessions() SessionRepository
	EmailTokens() EmailTokenRepository
	Identities() IdentityRepository
	Subscriptions() SubscriptionRepository
}
