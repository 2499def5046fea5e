// Package nats carries indicator signals over NATS so that processes other
// than the daemon (the host agent, the radio stack, `indicatord signal`) can
// feed the arbitration pipeline.
//
// # Architecture
//
//   - Server: optional embedded NATS server running in the daemon
//   - Bridge: subscribes to signal subjects and publishes to the event bus,
//     and forwards rendered intents and spam mode changes back out
//   - Client: publishes signals and watches rendered intents
//
// # Subject Hierarchy
//
//	indicatord.signals.battery     # {"percent":42} or {"unknown":true}
//	indicatord.signals.link        # {"connected":true,"advertising":false,"profile":0}
//	indicatord.signals.capslock    # {"flags":2} or {"active":true}
//	indicatord.signals.boot        # {"complete":true}
//	indicatord.signals.endpoint    # {"transport":"usb"}
//	indicatord.indicate.{kind}     # battery, connectivity or profile
//	indicatord.rendered            # rendered intents (daemon → clients)
//	indicatord.spam                # spam mode changes (daemon → clients)
//
// The package uses fire-and-forget messaging (core NATS, no JetStream).
//
// # Useful Debug Commands
//
// Watch what the indicator renders:
//
//	nats sub "indicatord.rendered" | jq .
//
// Simulate a flaky radio:
//
//	for i in $(seq 10); do
//	  nats pub indicatord.signals.link '{"connected":true,"profile":0}'
//	  nats pub indicatord.signals.link '{"connected":false,"profile":0}'
//	done
//
// Drop the battery to critical:
//
//	nats pub indicatord.signals.battery '{"percent":5}'
package nats
