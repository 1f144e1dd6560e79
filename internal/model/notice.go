package model

// Notice is a single-line message for the status bar.
type Notice struct {
	Text string
	Err  error
}

func (n Notice) String() string {
	if n.Err != nil {
		return n.Err.Error()
	}
	return n.Text
}
