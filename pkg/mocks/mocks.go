// Package mocks provides mock implementations for arangorm interfaces.
//
// Two layers can be mocked: core.DB, for code that depends on the connector
// surface, and the session Client/Collection/Cursor interfaces, for testing
// the connector itself without a database.
//
// # Mocking the connector
//
//	mockDB := new(mocks.MockDB)
//	mockDB.On("All", "Employee", mock.Anything, mock.Anything).
//	    Return([]model.Record{{"name": "ann"}}, nil)
//
//	service := NewDirectory(mockDB)
//	names, err := service.Names()
//
//	mockDB.AssertExpectations(t)
//
// # Mocking the transport
//
//	client := new(mocks.MockClient)
//	cursor := new(mocks.MockCursor)
//	client.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything).
//	    Return(cursor, nil)
//	cursor.On("All", mock.Anything).Return([]map[string]any{{"count": 3.0}}, nil)
//	cursor.On("Close", mock.Anything).Return(nil)
//
//	db, err := arangorm.New(cfg, arangorm.WithClient(client))
//
// # Tips
//
// 1. Use mock.Anything when you don't need to assert on specific arguments
// 2. Use mock.MatchedBy to assert on generated AQL or bind variables
// 3. Always assert expectations were met with AssertExpectations
package mocks

// Helper type aliases for convenience
type (
	// DB is an alias for MockDB to allow shorter declarations
	DB = MockDB

	// Client is an alias for MockClient to allow shorter declarations
	Client = MockClient
)
