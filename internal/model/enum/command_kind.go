package enum

// CommandKind submit, cancel, modify
type CommandKind uint8

const (
	_command_kind_beg CommandKind = iota
	CommandKindSubmitOrder
	CommandKindCancelOrder
	CommandKindModifyOrder
	_command_kind_end
)

func (k CommandKind) IsAvailable() bool {
	return k > _command_kind_beg && k < _command_kind_end
}

func (k CommandKind) String() string {
	switch k {
	case CommandKindSubmitOrder:
		return "submit_order"
	case CommandKindCancelOrder:
		return "cancel_order"
	case CommandKindModifyOrder:
		return "modify_order"
	default:
		return "unknown"
	}
}
