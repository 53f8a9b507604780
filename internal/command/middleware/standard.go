package middleware

// StandardChain composes the production unit order: payment, subscription,
// geofence, audit, status. The order is fixed at build time; several units
// can match one result and the terminal units must come first.
func StandardChain(payment, subscription FlowStarter, notifier AuditNotifier, present StatusPresenter, opts ...ChainOption) *Chain {
	return NewChain([]Unit{
		NewPaymentUnit(payment),
		NewSubscriptionUnit(subscription),
		NewGeofenceUnit(),
		NewAuditUnit(notifier),
		NewStatusUnit(present),
	}, opts...)
}
