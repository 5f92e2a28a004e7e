package order

// OrderState implements the state pattern for order lifecycle transitions.
type OrderState interface {
	Status() Status
	Next(target Status) (OrderState, error)
}

var states = map[Status]OrderState{
	StatusPending:        pendingState{},
	StatusConfirmed:      confirmedState{},
	StatusPreparing:      preparingState{},
	StatusOutForDelivery: outForDeliveryState{},
	StatusDelivered:      terminalState{status: StatusDelivered},
	StatusCancelled:      terminalState{status: StatusCancelled},
}

func stateFor(s Status) (OrderState, error) {
	st, ok := states[s]
	if !ok {
		return nil, ErrUnknownStatus
	}
	return st, nil
}

type pendingState struct{}

func (pendingState) Status() Status { return StatusPending }

func (pendingState) Next(target Status) (OrderState, error) {
	switch target {
	case StatusConfirmed:
		return confirmedState{}, nil
	case StatusCancelled:
		return terminalState{status: StatusCancelled}, nil
	}
	return nil, ErrInvalidStateTransition
}

type confirmedState struct{}

func (confirmedState) Status() Status { return StatusConfirmed }

func (confirmedState) Next(target Status) (OrderState, error) {
	switch target {
	case StatusPreparing:
		return preparingState{}, nil
	case StatusCancelled:
		return terminalState{status: StatusCancelled}, nil
	}
	return nil, ErrInvalidStateTransition
}

type preparingState struct{}

func (preparingState) Status() Status { return StatusPreparing }

func (preparingState) Next(target Status) (OrderState, error) {
	switch target {
	case StatusOutForDelivery:
		return outForDeliveryState{}, nil
	case StatusCancelled:
		return terminalState{status: StatusCancelled}, nil
	}
	return nil, ErrInvalidStateTransition
}

type outForDeliveryState struct{}

func (outForDeliveryState) Status() Status { return StatusOutForDelivery }

func (outForDeliveryState) Next(target Status) (OrderState, error) {
	if target == StatusDelivered {
		return terminalState{status: StatusDelivered}, nil
	}
	return nil, ErrInvalidStateTransition
}

// terminalState covers delivered and cancelled; nothing leaves them.
type terminalState struct{ status Status }

func (s terminalState) Status() Status { return s.status }

func (terminalState) Next(Status) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}
