// Package operation
package operation

type DatabaseOperations struct {
	flightOperation  FlightOperationInterface
	sessionOperation SessionOperationInterface
}

func NewDatabaseOperations(
	flightOperation FlightOperationInterface,
	sessionOperation SessionOperationInterface,
) *DatabaseOperations {
	return &DatabaseOperations{
		flightOperation:  flightOperation,
		sessionOperation: sessionOperation,
	}
}

func (db *DatabaseOperations) FlightOperation() FlightOperationInterface {
	return db.flightOperation
}

func (db *DatabaseOperations) SessionOperation() SessionOperationInterface {
	return db.sessionOperation
}
