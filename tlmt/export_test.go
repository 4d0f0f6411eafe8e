package tlmt

func SetIdentity(id string, meta map[string]any) func() {
	prev := identify
	identify = func() machineIdentifier {
		return machineIdentifier{id: id, meta: meta}
	}

	return func() { identify = prev }
}
