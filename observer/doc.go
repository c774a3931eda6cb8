// Package observer attaches observers to golem models.
//
// An observer is any value implementing one or more of the capability
// interfaces of this package (BeforeCreator, AfterFetcher, ...). Once a
// model is observed, every lifecycle hook of the model is dispatched to its
// observers: the global observers first, then the model's own, each group
// in registration order.
//
//	type UserObserver struct{ observer.UntilCommit }
//
//	func (UserObserver) AfterCreate(ctx context.Context, row core.Row) error {
//		return mailer.Welcome(ctx, row.(*User))
//	}
//
//	users := observer.Of(userModel)
//	if err := users.Observe(func() observer.Observer { return UserObserver{} }); err != nil {
//		return err
//	}
//
// Observers reporting DeferUntilCommit run after the commit of the
// transaction carried by the hook payload, and never when it rolls back.
// Without a transaction they run immediately.
//
// Every executed observer method is announced on the configured
// core.Emitter as "observer:{method}" with a Notification payload.
package observer
