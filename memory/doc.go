// Package memory persists finished investigation conversations.
//
// Persistence model:
//   - One JSON file per problem under <output>/conversation_logs/.
//   - Messages are stored as role + text exactly as exchanged with the model.
//   - Logs are written once, after the investigation ends; nothing is resumed
//     from them.
package memory
