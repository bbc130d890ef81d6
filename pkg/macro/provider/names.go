// SPDX-License-Identifier: GPL-3.0-or-later

package provider

const (
	MacroHostHost        = "{HOST.HOST}"
	MacroHostName        = "{HOST.NAME}"
	MacroHostID          = "{HOST.ID}"
	MacroHostDescription = "{HOST.DESCRIPTION}"
	MacroHostIP          = "{HOST.IP}"
	MacroHostDNS         = "{HOST.DNS}"
	MacroHostConn        = "{HOST.CONN}"
	MacroHostPort        = "{HOST.PORT}"
	MacroIPAddress       = "{IPADDRESS}"

	MacroItemLastValue = "{ITEM.LASTVALUE}"
	MacroItemValue     = "{ITEM.VALUE}"
	MacroItemKey       = "{ITEM.KEY}"
	MacroItemName      = "{ITEM.NAME}"
	MacroItemID        = "{ITEM.ID}"

	inventoryPrefix = "{INVENTORY."
)

// Inventory fields known to the inventory provider.
var InventoryMacros = []string{
	"{INVENTORY.TYPE}",
	"{INVENTORY.NAME}",
	"{INVENTORY.ALIAS}",
	"{INVENTORY.OS}",
	"{INVENTORY.OS.SHORT}",
	"{INVENTORY.SERIALNO.A}",
	"{INVENTORY.TAG}",
	"{INVENTORY.ASSET.TAG}",
	"{INVENTORY.MACADDRESS.A}",
	"{INVENTORY.HARDWARE}",
	"{INVENTORY.SOFTWARE}",
	"{INVENTORY.VENDOR}",
	"{INVENTORY.MODEL}",
	"{INVENTORY.LOCATION}",
	"{INVENTORY.LOCATION.LAT}",
	"{INVENTORY.LOCATION.LON}",
	"{INVENTORY.CONTACT}",
	"{INVENTORY.NOTES}",
}

// HostMacros are the host macros; all accept an N index.
var HostMacros = []string{
	MacroHostHost,
	MacroHostName,
	MacroHostID,
	MacroHostDescription,
	MacroHostIP,
	MacroHostDNS,
	MacroHostConn,
	MacroHostPort,
	MacroIPAddress,
}

// ItemMacros are the item macros; all accept an N index and functions.
var ItemMacros = []string{
	MacroItemLastValue,
	MacroItemValue,
	MacroItemKey,
	MacroItemName,
	MacroItemID,
}
