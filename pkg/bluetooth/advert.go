package bluetooth

import "tinygo.org/x/bluetooth"

// advertHandle is a running BLE peripheral advertisement. tinygo.bluetooth
// owns the LEAdvertisingManager1 D-Bus object registration for us; we only
// need to configure and start/stop it.
type advertHandle struct {
	adv *bluetooth.Advertisement
}

func startAdvertisement(adapter *bluetooth.Adapter, localName string) (*advertHandle, error) {
	serviceUUID, err := bluetooth.ParseUUID(AAWGServiceUUID)
	if err != nil {
		return nil, err
	}

	adv := adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    localName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	}); err != nil {
		return nil, err
	}
	if err := adv.Start(); err != nil {
		return nil, err
	}
	return &advertHandle{adv: adv}, nil
}

func (a *advertHandle) stop() error {
	return a.adv.Stop()
}
