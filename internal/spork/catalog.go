package spork

// Spork IDs, one compiled-in default per id. IDs 5, 6, and 7 are preserved
// in the id space for compatibility with older peers but carry no
// semantics here; they still route through the same ingress path.
const (
	MasternodePaymentsEnforcement  int32 = 10001
	MasternodeWinnerEnforcement    int32 = 10002
	DeveloperPaymentsEnforcement   int32 = 10003
	PaymentEnforcementDoSValue     int32 = 10004
	EnforceNewProtocolV200         int32 = 10005 // deprecated
	UpdatedDevPaymentsEnforcement  int32 = 10006 // deprecated
	ProtocolV201Enforcement        int32 = 10007 // deprecated
	ProtocolV210Enforcement        int32 = 10008
	ProtocolV3Enforcement          int32 = 10009
	V3DevPaymentsEnforcement       int32 = 10010
)

// defaultValue is the compiled-in value a spork id holds until a signed
// message overrides it. Most enforcement sporks default to an activation
// timestamp far in the future ("off"); the DoS weight defaults to 10.
var defaultValue = map[int32]int64{
	MasternodePaymentsEnforcement: 1525030000,
	MasternodeWinnerEnforcement:   4000000000,
	DeveloperPaymentsEnforcement:  1525030000,
	PaymentEnforcementDoSValue:    10,
	EnforceNewProtocolV200:        1513466452,
	UpdatedDevPaymentsEnforcement: 1524890000,
	ProtocolV201Enforcement:       1524890000,
	ProtocolV210Enforcement:       1544940000,
	ProtocolV3Enforcement:         1562561521,
	V3DevPaymentsEnforcement:      4070908800,
}

var idToName = map[int32]string{
	MasternodePaymentsEnforcement: "SPORK_1_MASTERNODE_PAYMENTS_ENFORCEMENT",
	MasternodeWinnerEnforcement:   "SPORK_2_MASTERNODE_WINNER_ENFORCEMENT",
	DeveloperPaymentsEnforcement:  "SPORK_3_DEVELOPER_PAYMENTS_ENFORCEMENT",
	PaymentEnforcementDoSValue:    "SPORK_4_PAYMENT_ENFORCEMENT_DOS_VALUE",
	EnforceNewProtocolV200:        "SPORK_5_ENFORCE_NEW_PROTOCOL_V200",
	UpdatedDevPaymentsEnforcement: "SPORK_6_UPDATED_DEV_PAYMENTS_ENFORCEMENT",
	ProtocolV201Enforcement:       "SPORK_7_PROTOCOL_V201_ENFORCEMENT",
	ProtocolV210Enforcement:       "SPORK_8_PROTOCOL_V210_ENFORCEMENT",
	ProtocolV3Enforcement:         "SPORK_9_PROTOCOL_V3_ENFORCEMENT",
	V3DevPaymentsEnforcement:      "SPORK_10_V3_DEV_PAYMENTS_ENFORCEMENT",
}

var nameToID = func() map[string]int32 {
	m := make(map[string]int32, len(idToName))
	for id, name := range idToName {
		m[name] = id
	}
	return m
}()

const (
	sporkIDMin = MasternodePaymentsEnforcement
	sporkIDMax = V3DevPaymentsEnforcement
)

func isKnownID(id int32) bool { return id >= sporkIDMin && id <= sporkIDMax }

// NameByID returns the catalog name for id, or "" if id is outside the
// known range.
func NameByID(id int32) string { return idToName[id] }

// IDByName returns the id for a catalog name and whether it was found.
func IDByName(name string) (int32, bool) {
	id, ok := nameToID[name]
	return id, ok
}

func compiledDefault(id int32) int64 { return defaultValue[id] }
