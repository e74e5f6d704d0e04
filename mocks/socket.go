// Code generated by hand in the style of mockery. DO NOT EDIT structure
// without regenerating; kept here since the retrieval pack's own
// mocks package (referenced by SheetRepository_test.go's
// mocks.NewExpressionExecutor(t)) was not itself checked in.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/berejant/collabsheet/contracts"
)

// Socket is a mockery-style mock type for the Socket type.
type Socket struct {
	mock.Mock
}

var _ contracts.Socket = (*Socket)(nil)

// SendLine provides a mock function with given fields: line.
func (m *Socket) SendLine(line string) error {
	ret := m.Called(line)
	return ret.Error(0)
}

// ReadLine provides a mock function with given fields:.
func (m *Socket) ReadLine() (string, error) {
	ret := m.Called()
	return ret.String(0), ret.Error(1)
}

// ReadN provides a mock function with given fields: n.
func (m *Socket) ReadN(n int) ([]byte, error) {
	ret := m.Called(n)
	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	return r0, ret.Error(1)
}

// Close provides a mock function with given fields:.
func (m *Socket) Close() error {
	ret := m.Called()
	return ret.Error(0)
}

// NewSocket creates a new instance of Socket. It also registers a cleanup
// function to assert the mock's expectations.
func NewSocket(t interface {
	mock.TestingT
	Cleanup(func())
}) *Socket {
	mockSocket := &Socket{}
	mockSocket.Mock.Test(t)

	t.Cleanup(func() { mockSocket.AssertExpectations(t) })

	return mockSocket
}
